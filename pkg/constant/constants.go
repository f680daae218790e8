package constants

const (
	// DbField gin context 中注入的数据库连接键
	DbField = "db"
	// UserField gin context 中缓存的当前用户键
	UserField = "user"
	// SessionField session 中保存的用户 ID 键
	SessionField = "user_id"
	// RequestIDHeader 请求链路标识头
	RequestIDHeader = "X-Request-ID"
)
