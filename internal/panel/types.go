package panel

// CreateUserRequest — тело запроса на создание пользователя панели.
type CreateUserRequest struct {
	Name         string  `json:"name"`
	TelegramID   int64   `json:"telegram_id"`
	PackageDays  int     `json:"package_days"`
	UsageLimitGB float64 `json:"usage_limit_GB"`
	IsActive     bool    `json:"is_active"`
	Enable       bool    `json:"enable"`
	Mode         string  `json:"mode"`
	Lang         string  `json:"lang"`
	Comment      string  `json:"comment"`
}

// PatchUserRequest — частичное обновление пользователя панели. Указатели
// отличают "не менять" от явного false/нуля.
type PatchUserRequest struct {
	Enable       *bool    `json:"enable,omitempty"`
	IsActive     *bool    `json:"is_active,omitempty"`
	Mode         string   `json:"mode,omitempty"`
	UsageLimitGB *float64 `json:"usage_limit_GB,omitempty"`
	PackageDays  *int     `json:"package_days,omitempty"`
	Lang         string   `json:"lang,omitempty"`
	Comment      string   `json:"comment,omitempty"`
}

type shortLinkResponse struct {
	FullURL string `json:"full_url"`
	Short   string `json:"short"`
	URL     string `json:"url"`
}

func (r shortLinkResponse) candidate() string {
	if r.FullURL != "" {
		return r.FullURL
	}
	if r.Short != "" {
		return r.Short
	}
	return r.URL
}
