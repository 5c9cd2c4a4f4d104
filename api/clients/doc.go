/*
Package clients provides the HTTP client for the vault API.

VaultClient mirrors the server surface one to one and keeps all secret
material on the caller's side: Store encrypts locally under a freshly minted
token before anything is submitted, and Read only releases plaintext through
a decrypt authorization signed with the caller's key.

Typical flow:

	client := &clients.VaultClient{ServerAddr: "http://127.0.0.1:8080"}

	index, err := client.Store(ctx, owner, []byte("db password"), "prod db")
	// ...
	record, err := client.Get(ctx, owner, index)
	auth, err := issuer.SignDecryptAuthorization(key,
		[]interfaces.PasswordHandle{record.PasswordHandle}, contract,
		time.Now().Unix(), issuer.DefaultDurationDays)
	read, err := client.Read(ctx, owner, index, auth)
*/
package clients
