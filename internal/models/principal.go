package models

// Principal 发起请求的主体: 登录用户或持有公开链接的匿名访问者
type Principal struct {
	UserID uint64
	LinkID string
}

func UserPrincipal(userID uint64) Principal {
	return Principal{UserID: userID}
}

func LinkPrincipal(linkID string) Principal {
	return Principal{LinkID: linkID}
}

func (p Principal) IsAnonymous() bool {
	return p.UserID == 0
}

// Action 权限解析时请求的动作
type Action int

const (
	ActionRead Action = iota + 1
	ActionWrite
	ActionManage
)

func (a Action) String() string {
	switch a {
	case ActionRead:
		return "read"
	case ActionWrite:
		return "write"
	case ActionManage:
		return "manage"
	default:
		return "unknown"
	}
}
