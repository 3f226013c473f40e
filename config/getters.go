package config

import (
	"time"

	auth "github.com/furfightclub/ffc-auth-service"
)

var _ auth.Config = Auth{}

func (a Auth) GetIssuer() string {
	return a.Issuer
}

func (a Auth) GetServiceName() string {
	return a.ServiceName
}

func (a Auth) GetServiceTokenTTL() time.Duration {
	return a.ServiceTokenTTL
}

func (a Auth) GetUserTokenTTL() time.Duration {
	return a.UserTokenTTL
}

func (a Auth) GetEmailTokenTTL() time.Duration {
	return a.EmailTokenTTL
}

func (a Auth) GetServiceTokenHeader() string {
	return a.ServiceTokenHeader
}

func (a Auth) GetUserTokenHeader() string {
	return a.UserTokenHeader
}

func (a Auth) GetAuthScheme() string {
	return a.AuthScheme
}

// KeyPaths returns the key file locations for auth.LoadKeySet
func (a Auth) KeyPaths() auth.KeyPaths {
	return auth.KeyPaths{
		PrivateKey:       a.PrivateKeyPath,
		PublicKey:        a.PublicKeyPath,
		ServicePublicKey: a.ServicePublicKeyPath,
	}
}

// ServiceNames returns the allowed services as typed names
func (a Auth) ServiceNames() []auth.ServiceName {
	out := make([]auth.ServiceName, 0, len(a.AllowedServices))
	for _, name := range a.AllowedServices {
		out = append(out, auth.ServiceName(name))
	}
	return out
}
