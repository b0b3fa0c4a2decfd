// Package jwt issues and verifies short-lived HS256 tokens on top of
// github.com/golang-jwt/jwt/v5.
//
// Every token carries a Purpose claim next to the registered claims so that a
// token minted for one flow is rejected by another even when both share a key.
// Sign always stamps iat, nbf, exp and a random jti; Verify pins the algorithm
// to HS256, requires exp and, when WithIssuer is used, the issuer.
//
//	svc, err := jwt.New([]byte(os.Getenv("TWOFACTOR_JWT_SECRET")), jwt.WithIssuer("acme"))
//	if err != nil {
//	    return err
//	}
//	token, err := svc.Sign(jwt.Claims{Purpose: "2fa_pending", RegisteredClaims: gojwt.RegisteredClaims{Subject: userID}}, 5*time.Minute)
//	claims, err := svc.Verify(token)
//	if errors.Is(err, jwt.ErrExpiredToken) {
//	    // ask the user to sign in again
//	}
package jwt
