package token

// 測試時可覆蓋
var ParseJWTFunc = ParseJWT

// Authenticate verify a bearer credential, the handshake goes through this so tests can stub it
func Authenticate(t string) (*Claims, error) {
	return ParseJWTFunc(t)
}
