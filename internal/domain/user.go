package domain

// User is the investor/exporter read model this engine needs: identity, contact
// address for notifications and the registered settlement wallet.
type User struct {
	ID               string
	Email            string
	Role             string
	WalletAddress    *string
	CatalystUnlocked bool
}
