/*
Package auth implements the authentication state machine for the application.

A login attempt moves through the states
Unauthenticated -> AwaitingSecondFactor -> Authenticated, with a direct
edge to Authenticated for wallet logins and for credential logins on
accounts without a second factor. The service orchestrates the password,
totp, siwe and session packages into these transitions:

	// Create the service
	svc := auth.NewService(identities, sessions, verifier, totpSvc, publisher, metrics, cfg)

	// Credential login
	result, err := svc.SubmitCredentials(ctx, "alice", "secret1")
	switch result.State {
	case auth.StateAuthenticated:          // result.Session is set
	case auth.StateAwaitingSecondFactor:   // result.PendingRef is set
	}

	// Complete the second factor
	result, err = svc.SubmitSecondFactor(ctx, result.PendingRef, "123456")

	// Wallet login (registers the identity on first contact)
	challenge, err := svc.WalletChallenge(ctx, address)
	result, err = svc.SubmitWalletSignature(ctx, address, signature, signedMessage)

While a credential login awaits its TOTP code, the only server-side trace
is the signed PendingRef handed back to the caller; no session exists
until the code verifies.

Error Handling:

Every failure of a single attempt is terminal; the caller resubmits.
The service reports domain failures through the sentinel errors in
errors.go (ErrInvalidCredentials, ErrInvalidState, ErrInvalidCode,
ErrSignatureInvalid, ErrMalformedMessage, ErrExpired, ErrAlreadyExists,
ErrNotAuthenticated). ErrInvalidCredentials deliberately hides whether
the username or the password was wrong. Collaborator failures (store,
broker) surface as wrapped non-domain errors.

Metrics:

Attempt outcomes, second-factor checks and issued sessions are reported
through the MetricsCollector interface; pass nil for no collection.
*/
package auth
