package xerr

import "errors"

// 错误分类, 上层用 errors.Is 判断
var (
	ErrNotFound           = errors.New("资源不存在")
	ErrConflict           = errors.New("资源冲突，请重试")
	ErrUnauthorized       = errors.New("用户未授权")
	ErrStorageUnavailable = errors.New("存储服务暂时不可用")
	ErrValidation         = errors.New("参数验证失败")
	ErrInternalServer     = errors.New("服务器内部错误")
)

// 具体业务错误, 每个都归属于上面的一个分类
var (
	ErrInvalidName           = New(FileNameInvalidCode, ErrValidation, "名称不能为空、过长或包含 '/'")
	ErrQuotaExceeded         = New(FileTooLargeCode, ErrValidation, "存储空间不足")
	ErrCannotMoveIntoSubtree = New(CannotMoveIntoSubtreeCode, ErrValidation, "不能移动目录到其自身或子目录下")
	ErrCannotShareWithOwner  = New(CannotShareWithOwnerCode, ErrValidation, "不能分享给资源所有者")
	ErrUploadIncomplete      = New(UploadIncompleteCode, ErrValidation, "文件尚未上传完成")
	ErrEmptySearchQuery      = New(ValidationFailedCode, ErrValidation, "搜索关键字不能为空")

	ErrTokenInvalid       = New(TokenInvalidCode, ErrUnauthorized, "认证 Token 无效或已过期")
	ErrInvalidCredentials = New(InvalidCredentialsCode, ErrUnauthorized, "邮箱或密码不正确")

	ErrUserNotFound   = New(UserNotFoundCode, ErrNotFound, "用户不存在")
	ErrFileNotFound   = New(FileNotFoundCode, ErrNotFound, "文件不存在")
	ErrFolderNotFound = New(FolderNotFoundCode, ErrNotFound, "目录不存在")
	ErrShareNotFound  = New(ShareNotFoundCode, ErrNotFound, "分享不存在")
	ErrLinkNotFound   = New(LinkNotFoundCode, ErrNotFound, "分享链接不存在或已撤销")

	ErrEmailAlreadyExists = New(EmailAlreadyExistsCode, ErrConflict, "邮箱已被注册")
	ErrNameConflict       = New(NameConflictCode, ErrConflict, "同一目录下已存在同名文件夹")

	ErrStorage = New(StorageErrorCode, ErrStorageUnavailable, "存储服务操作失败")
)
