package domain

// Account is a registration request as the gateway forwards it to the IdP.
type Account struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
}
