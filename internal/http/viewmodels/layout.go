package viewmodels

type LayoutData struct {
	Title      string
	CSRFToken  string
	UserEmail  string
	UserRole   string
	IsAdmin    bool
	Toast      *ToastViewData
	ActivePath string
	// SourceName is "db" or "api", shown in the footer.
	SourceName string
}

type ToastViewData struct {
	Category    string `json:"category"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}
