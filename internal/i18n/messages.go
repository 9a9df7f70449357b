package i18n

var messages = map[string]map[string]string{
	LocaleEN: {
		"error.bad_request":              "Invalid request",
		"error.unauthorized":             "Please sign in first",
		"error.not_found":                "Resource not found",
		"error.internal":                 "Something went wrong, please try again later",
		"error.device_invalid":           "Unrecognized device",
		"error.session_unavailable":      "Session is unavailable, please retry",
		"error.email_invalid":            "Please enter a valid email address",
		"error.email_exists":             "This email is already registered",
		"error.login_invalid":            "Email or password is incorrect",
		"error.user_disabled":            "This account has been disabled",
		"error.display_name_invalid":     "Display name must be 1-64 characters",
		"error.password_weak":            "Password is too weak",
		"error.password_required":        "Password is required",
		"error.password_min_length":      "Password must be at least %d characters",
		"error.password_require_upper":   "Password must contain an uppercase letter",
		"error.password_require_lower":   "Password must contain a lowercase letter",
		"error.password_require_number":  "Password must contain a number",
		"error.password_require_special": "Password must contain a special character",
		"error.auth_rate_limited":        "Too many attempts, please try again later",
		"error.auth_failed":              "Authentication failed, please try again later",
		"error.rate_limit_unavailable":   "Service is busy, please try again later",
		"error.rate_limited":             "Too many requests, please retry in %d seconds",
		"error.cart_item_invalid":        "This item cannot be added to the cart",
		"error.cart_quantity_invalid":    "Quantity must be a whole number",
		"error.cart_not_ready":           "Your cart is still loading",
		"error.catalog_item_not_found":   "Item not found",
		"error.catalog_unavailable":      "Catalog is temporarily unavailable",
	},
	LocaleZH: {
		"error.bad_request":              "请求参数错误",
		"error.unauthorized":             "请先登录",
		"error.not_found":                "资源不存在",
		"error.internal":                 "服务异常，请稍后重试",
		"error.device_invalid":           "无法识别的设备",
		"error.session_unavailable":      "会话暂不可用，请重试",
		"error.email_invalid":            "请输入有效的邮箱地址",
		"error.email_exists":             "该邮箱已注册",
		"error.login_invalid":            "邮箱或密码错误",
		"error.user_disabled":            "账号已被禁用",
		"error.display_name_invalid":     "昵称长度需为 1-64 个字符",
		"error.password_weak":            "密码强度不足",
		"error.password_required":        "请输入密码",
		"error.password_min_length":      "密码长度至少为 %d 位",
		"error.password_require_upper":   "密码需包含大写字母",
		"error.password_require_lower":   "密码需包含小写字母",
		"error.password_require_number":  "密码需包含数字",
		"error.password_require_special": "密码需包含特殊字符",
		"error.auth_rate_limited":        "尝试次数过多，请稍后再试",
		"error.auth_failed":              "认证失败，请稍后重试",
		"error.rate_limit_unavailable":   "服务繁忙，请稍后重试",
		"error.rate_limited":             "请求过于频繁，请在 %d 秒后重试",
		"error.cart_item_invalid":        "该商品无法加入购物车",
		"error.cart_quantity_invalid":    "数量必须为整数",
		"error.cart_not_ready":           "购物车加载中",
		"error.catalog_item_not_found":   "商品不存在",
		"error.catalog_unavailable":      "商品目录暂不可用",
	},
	LocaleTW: {
		"error.bad_request":            "請求參數錯誤",
		"error.unauthorized":           "請先登入",
		"error.not_found":              "資源不存在",
		"error.internal":               "服務異常，請稍後重試",
		"error.email_invalid":          "請輸入有效的郵箱地址",
		"error.email_exists":           "該郵箱已註冊",
		"error.login_invalid":          "郵箱或密碼錯誤",
		"error.user_disabled":          "帳號已被停用",
		"error.password_min_length":    "密碼長度至少為 %d 位",
		"error.auth_rate_limited":      "嘗試次數過多，請稍後再試",
		"error.rate_limited":           "請求過於頻繁，請在 %d 秒後重試",
		"error.cart_item_invalid":      "該商品無法加入購物車",
		"error.catalog_item_not_found": "商品不存在",
	},
}
