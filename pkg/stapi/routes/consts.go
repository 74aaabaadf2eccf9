package routes

var (
	BearerAuth = []map[string][]string{
		{"bearer": {}},
	}
)

const (
	PathLogin    = "/api/users/login/"
	PathRegister = "/api/users/register/"
	PathLogout   = "/api/users/logout/"
	PathProfile  = "/api/users/profile/"
	PathRefresh  = "/api/token/refresh/"
	PathHealth   = "/health"
)

type Tag string

const (
	TagHealth Tag = "health"
	TagUsers  Tag = "users"
	TagTokens Tag = "tokens"
)

func (t Tag) String() string { return string(t) }
