package model

type Credentials struct {
	School   string `mapstructure:"school" json:"school"`
	Username string `mapstructure:"username" json:"username"`
	Password string `mapstructure:"password" json:"-"`
}

type UserInfo struct {
	ID       string     `json:"id"`
	Username string     `json:"username"`
	FullName string     `json:"full_name"`
	Type     int        `json:"type"`
	School   SchoolInfo `json:"school"`
}

// Token is issued once per login and never mutated; a new login replaces it.
type Token struct {
	AccessToken  string   `json:"-"`
	TokenType    string   `json:"token_type"`
	RefreshToken string   `json:"-"`
	ExpiresIn    int      `json:"expires_in"`
	Scope        string   `json:"scope"`
	JTI          string   `json:"jti"`
	User         UserInfo `json:"user"`
}
