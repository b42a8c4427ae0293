package auth

import (
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/FBakkensen/docchat-tui/logging"
)

// logTokenClaims logs diagnostic claims of an access token (audience, scopes,
// tenant) to help debug audience and consent issues. The token is decoded
// without signature validation; nothing here trusts the claims.
func logTokenClaims(accessToken string, requestedScopes []string) {
	if logging.GetLogLevel() != logging.LevelDebug {
		return
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, claims); err != nil {
		// Opaque (non-JWT) access tokens are valid too; nothing to log.
		logging.Debug("Access token is not a decodable JWT", "error", err.Error())
		return
	}
	logging.Debug("Acquired access token claims",
		"requested_scopes", strings.Join(requestedScopes, " "),
		"aud", fmt.Sprint(claims["aud"]),
		"scp", fmt.Sprint(claims["scp"]),
		"tid", fmt.Sprint(claims["tid"]),
		"exp", fmt.Sprint(claims["exp"]))
}
