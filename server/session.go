package server

import (
	"net/http"

	"github.com/gorilla/sessions"
	"github.com/prior-it/clientbook/config"
)

const cookieFlash = "clientbook-flash"

// NewSessionStore creates a cookie store signed with the configured authentication key, and
// encrypted if an encryption key is configured as well. It returns nil if there is no
// authentication key.
func NewSessionStore(cfg *config.Config) sessions.Store {
	if len(cfg.App.AuthenticationKey) == 0 {
		return nil
	}
	keys := [][]byte{[]byte(cfg.App.AuthenticationKey)}
	if len(cfg.App.EncryptionKey) > 0 {
		keys = append(keys, []byte(cfg.App.EncryptionKey))
	}
	return sessions.NewCookieStore(keys...)
}

func configureCookie(cfg *config.Config, session *sessions.Session) *sessions.Session {
	if cfg.IsTest() {
		session.Options.Secure = false
		session.Options.HttpOnly = false
		session.Options.SameSite = http.SameSiteLaxMode
	} else if cfg.App.Debug {
		session.Options.Secure = cfg.App.SSL
		session.Options.HttpOnly = true
		session.Options.SameSite = http.SameSiteLaxMode
	} else { // production
		session.Options.Secure = true
		session.Options.HttpOnly = true
		session.Options.SameSite = http.SameSiteLaxMode
	}
	session.Options.Path = "/"
	return session
}

// AddFlash stores a message that will be shown on the next rendered page.
// Nothing happens if the server has no session store.
func (scope *Scope) AddFlash(message string) {
	session := Session(scope.Context())
	if session == nil {
		scope.Debug("No session store configured, dropping flash message", "message", message)
		return
	}
	session.AddFlash(message)
	if err := session.Save(scope.Request, scope.Writer); err != nil {
		scope.Error("Could not save flash message", "error", err)
	}
}

// Flashes removes and returns all pending flash messages.
func (scope *Scope) Flashes() []string {
	session := Session(scope.Context())
	if session == nil {
		return nil
	}
	values := session.Flashes()
	if len(values) == 0 {
		return nil
	}
	if err := session.Save(scope.Request, scope.Writer); err != nil {
		scope.Error("Could not clear flash messages", "error", err)
	}
	messages := make([]string, 0, len(values))
	for _, v := range values {
		if msg, ok := v.(string); ok {
			messages = append(messages, msg)
		}
	}
	return messages
}
