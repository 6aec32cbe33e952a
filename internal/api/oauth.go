package api

import (
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Account linking stubs.
//
// The voice platform's account-link flow needs an OAuth authorization
// endpoint and a token endpoint. These are development stand-ins: the
// authorization code is fixed, the login form accepts anyone, and tokens
// are issued without a user database. Real deployments front this with a
// proper identity provider.

// fakeAuthCode is the fixed authorization code issued by /fakeauth.
const fakeAuthCode = "xxxxxx"

// staticRefreshToken is issued on the authorization_code grant. There is
// no refresh-token store; the token endpoint accepts any refresh grant.
const staticRefreshToken = "123refresh"

// fallbackAccessToken is issued when no JWT secret is configured.
const fallbackAccessToken = "123access"

// secondsInDay is the default access token lifetime.
const secondsInDay = 86400

var loginTemplate = template.Must(template.New("login").Parse(`<html>
<body>
<form action="/login" method="post">
<input type="hidden" name="responseurl" value="{{.ResponseURL}}" />
<button type="submit" style="font-size:14pt">Link this service to your account</button>
</form>
</body>
</html>`))

// handleLoginForm renders the account-link consent form. The response URL
// from the query string is carried through as a hidden field.
func (s *Server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := loginTemplate.Execute(w, map[string]string{
		"ResponseURL": r.URL.Query().Get("responseurl"),
	})
	if err != nil {
		s.logger.Error("login form render failed", "error", err)
	}
}

// handleLoginSubmit completes the consent form and bounces the browser
// back to the platform's redirect URL.
func (s *Server) handleLoginSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeBadRequest(w, "invalid form data")
		return
	}

	responseURL, err := url.QueryUnescape(r.PostFormValue("responseurl"))
	if err != nil || responseURL == "" {
		writeBadRequest(w, "responseurl is required")
		return
	}

	s.logger.Info("account link approved", "redirect", responseURL)
	http.Redirect(w, r, responseURL, http.StatusSeeOther)
}

// handleFakeAuth is the OAuth authorization endpoint. It issues the fixed
// authorization code via the login form.
func (s *Server) handleFakeAuth(w http.ResponseWriter, r *http.Request) {
	redirectURI := r.URL.Query().Get("redirect_uri")
	if redirectURI == "" {
		writeBadRequest(w, "redirect_uri is required")
		return
	}
	state := r.URL.Query().Get("state")

	responseURL := fmt.Sprintf("%s?code=%s&state=%s", redirectURI, fakeAuthCode, state)
	loginURL := fmt.Sprintf("/login?responseurl=%s", url.QueryEscape(responseURL))

	http.Redirect(w, r, loginURL, http.StatusFound)
}

// tokenResponse is the OAuth token endpoint response.
type tokenResponse struct {
	TokenType    string `json:"token_type"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int    `json:"expires_in"`
}

// handleFakeToken is the OAuth token endpoint.
//
// The authorization_code grant returns an access token plus a refresh
// token; the refresh_token grant returns a fresh access token only.
// Grant type is read from the query string or the form body, matching
// how different platform versions send it.
func (s *Server) handleFakeToken(w http.ResponseWriter, r *http.Request) {
	grantType := r.URL.Query().Get("grant_type")
	if grantType == "" {
		if err := r.ParseForm(); err == nil {
			grantType = r.PostFormValue("grant_type")
		}
	}

	if grantType != "authorization_code" && grantType != "refresh_token" {
		writeBadRequest(w, "unsupported grant_type")
		return
	}

	ttl := s.secCfg.JWT.TokenTTL
	if ttl <= 0 {
		ttl = secondsInDay
	}

	accessToken, err := s.issueAccessToken(ttl)
	if err != nil {
		s.logger.Error("token issue failed", "error", err)
		writeInternalError(w, "could not issue token")
		return
	}

	resp := tokenResponse{
		TokenType:   "Bearer",
		AccessToken: accessToken,
		ExpiresIn:   ttl,
	}
	if grantType == "authorization_code" {
		resp.RefreshToken = staticRefreshToken
	}

	writeJSON(w, http.StatusOK, resp)
}

// issueAccessToken signs a JWT for the agent user, or falls back to a
// static opaque token when no secret is configured.
func (s *Server) issueAccessToken(ttlSeconds int) (string, error) {
	if s.secCfg.JWT.Secret == "" {
		return fallbackAccessToken, nil
	}

	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   s.agentUserID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(ttlSeconds) * time.Second)),
		Issuer:    "lockbridge",
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.secCfg.JWT.Secret))
}
