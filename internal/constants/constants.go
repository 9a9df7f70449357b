package constants

// 用户状态常量
const (
	UserStatusActive   = "active"
	UserStatusDisabled = "disabled"
)

// 购物车归属类型常量
const (
	OwnerKindGuest = "guest"
	OwnerKindUser  = "user"
)

// 购物车状态常量
const (
	CartStateUninitialized = "uninitialized"
	CartStateLoading       = "loading"
	CartStateReady         = "ready"
)

// 购物车存储后端常量
const (
	CartBackendLocal  = "local"
	CartBackendRemote = "remote"
)

// 设备本地快照键
const (
	LocalKeyCart    = "cart"
	LocalKeySession = "session"
)

// 设备标识传递方式
const (
	DeviceCookieName = "sf_device"
	DeviceHeaderName = "X-Device-ID"
	DeviceContextKey = "device_id"
)

// 认证错误类型常量
const (
	AuthErrorInvalidCredential = "invalid_credential"
	AuthErrorAlreadyRegistered = "already_registered"
	AuthErrorWeakCredential    = "weak_credential"
	AuthErrorRateLimited       = "rate_limited"
	AuthErrorUnknown           = "unknown"
)

// 异步任务常量
const (
	QueueDefault           = "default"
	TaskGuestCartPurge     = "cart:guest_purge"
	TaskDeviceSessionPurge = "session:device_purge"
)

// 商品目录默认值
const (
	CatalogDefaultPageSize = 20
	CatalogDefaultMaxItems = 100
)

// 身份事件日志常量
const (
	AuthEventActionSignIn  = "sign_in"
	AuthEventActionSignUp  = "sign_up"
	AuthEventActionSignOut = "sign_out"

	AuthEventStatusSuccess = "success"
	AuthEventStatusFailed  = "failed"

	AuthEventSourceWeb = "web"
)
