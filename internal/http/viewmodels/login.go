package viewmodels

type LoginViewData struct {
	CSRFToken     string
	Email         string
	Next          string
	ErrorMessage  string
	EmailError    string
	PasswordError string
	SetupRequired bool
	Toast         *ToastViewData
}
