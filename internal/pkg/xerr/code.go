package xerr

// 统一的业务错误码
const (
	SuccessCode = 20000

	// --- 客户端请求错误系列 (400xx) ---
	InvalidParamsCode         = 40000 // 无效的请求参数
	ValidationFailedCode      = 40001 // 参数验证失败
	FileTooLargeCode          = 40003 // 超出存储配额
	FileNameInvalidCode       = 40004 // 名称无效
	CannotShareWithOwnerCode  = 40005 // 不能分享给资源所有者
	CannotMoveIntoSubtreeCode = 40008 // 不能移动目录到其子目录下
	UploadIncompleteCode      = 40011 // 对象存储中尚未找到上传内容

	// --- 认证错误系列 (401xx) ---
	UnauthorizedCode       = 40100
	TokenInvalidCode       = 40101
	InvalidCredentialsCode = 40102

	// --- 资源未找到错误系列 (404xx) ---
	// 无权限与不存在统一返回 404, 避免泄露资源是否存在
	NotFoundCode       = 40400
	UserNotFoundCode   = 40401
	FileNotFoundCode   = 40402
	FolderNotFoundCode = 40403
	ShareNotFoundCode  = 40404
	LinkNotFoundCode   = 40405

	// --- 冲突系列 (409xx) ---
	ConflictCode           = 40900
	EmailAlreadyExistsCode = 40901
	NameConflictCode       = 40904 // 同级目录下名称已存在

	// --- 服务器内部错误系列 (500xx) ---
	InternalServerErrorCode = 50000
	DatabaseErrorCode       = 50001
	StorageErrorCode        = 50002 // 对象存储不可用
	MQErrorCode             = 50003
)
