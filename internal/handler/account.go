package handler

import (
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/traildiary/traildiary/internal/apperror"
	"github.com/traildiary/traildiary/internal/auth"
	"github.com/traildiary/traildiary/internal/model"
	"github.com/traildiary/traildiary/internal/service"
)

// AccountHandler serves sign-up, login and the caller's own profile.
type AccountHandler struct {
	accounts *service.AccountService
	journal  *service.JournalService
	tokenTTL time.Duration
	logger   *slog.Logger
}

func NewAccountHandler(accounts *service.AccountService, journal *service.JournalService, tokenTTL time.Duration, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{accounts: accounts, journal: journal, tokenTTL: tokenTTL, logger: logger}
}

// userView is the public shape of a user: the hash never leaves the
// server, the birthday is a plain date and the derived fields are filled in.
type userView struct {
	ID          int64     `json:"id"`
	Nickname    string    `json:"nickname"`
	TrailNumber string    `json:"trailNumber"`
	Phone       string    `json:"phone,omitempty"`
	Signature   string    `json:"signature"`
	Gender      string    `json:"gender,omitempty"`
	Birthday    string    `json:"birthday,omitempty"`
	Age         int       `json:"age,omitempty"`
	Zodiac      string    `json:"zodiac"`
	Avatar      []byte    `json:"avatar,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

func newUserView(u *model.User) userView {
	v := userView{
		ID:          u.ID,
		Nickname:    u.Nickname,
		TrailNumber: u.TrailNumber,
		Phone:       u.Phone,
		Signature:   u.Signature,
		Gender:      u.Gender,
		Age:         u.Age(time.Now()),
		Zodiac:      u.Zodiac(),
		Avatar:      u.Avatar,
		CreatedAt:   u.CreatedAt,
	}
	if u.Birthday != nil {
		v.Birthday = u.Birthday.Format(dateLayout)
	}
	return v
}

type registerRequest struct {
	Nickname    string `json:"nickname"`
	TrailNumber string `json:"trailNumber"`
	Password    string `json:"password"`
	Phone       string `json:"phone"`
	Signature   string `json:"signature"`
	Gender      string `json:"gender"`
	Birthday    string `json:"birthday"`
	Avatar      []byte `json:"avatar"` // base64 in JSON
}

// HandleRegister creates an account.
//
// HTTP: POST /api/register → 201 user
func (h *AccountHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	birthday, err := parseDate("birthday", req.Birthday)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	user, err := h.accounts.Register(r.Context(), service.RegisterInput{
		Nickname:    req.Nickname,
		TrailNumber: req.TrailNumber,
		Password:    req.Password,
		Phone:       req.Phone,
		Signature:   req.Signature,
		Gender:      req.Gender,
		Birthday:    birthday,
		Avatar:      req.Avatar,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, newUserView(user))
}

type loginRequest struct {
	// Identifier is a trail number or a nickname.
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type loginResponse struct {
	Token string   `json:"token"`
	User  userView `json:"user"`
}

// HandleLogin verifies credentials and issues a token, both in the body
// (for API clients) and as the HttpOnly "token" cookie (for browsers).
//
// HTTP: POST /api/login
func (h *AccountHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	res, err := h.accounts.Login(r.Context(), req.Identifier, req.Password)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	h.setTokenCookie(w, r, res.Token, int(h.tokenTTL.Seconds()))
	writeJSON(w, http.StatusOK, loginResponse{Token: res.Token, User: newUserView(res.User)})
}

// HandleLogout drops the cookie. Tokens are stateless, so one held by an
// API client stays valid until it expires.
//
// HTTP: POST /api/logout → 204
func (h *AccountHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	h.setTokenCookie(w, r, "", -1)
	w.WriteHeader(http.StatusNoContent)
}

// setTokenCookie writes the session cookie; maxAge < 0 deletes it.
func (h *AccountHandler) setTokenCookie(w http.ResponseWriter, r *http.Request, token string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}

type resetCodeRequest struct {
	Phone string `json:"phone"`
}

// HandleRequestResetCode sends a verification code to the phone. The
// answer is the same whether or not an account uses that phone.
//
// HTTP: POST /api/password/reset/code → 202
func (h *AccountHandler) HandleRequestResetCode(w http.ResponseWriter, r *http.Request) {
	var req resetCodeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if err := h.accounts.RequestPasswordReset(r.Context(), req.Phone); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

type resetPasswordRequest struct {
	Phone    string `json:"phone"`
	Code     string `json:"code"`
	Password string `json:"password"`
}

// HandleResetPassword sets a new password for the phone's accounts once
// the code from HandleRequestResetCode checks out.
//
// HTTP: POST /api/password/reset → 204
func (h *AccountHandler) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if err := h.accounts.ResetPassword(r.Context(), req.Phone, req.Code, req.Password); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HTTP: GET /api/me
func (h *AccountHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	user, err := h.accounts.Profile(r.Context(), userID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, newUserView(user))
}

// HTTP: GET /api/me/stats
func (h *AccountHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	stats, err := h.journal.Stats(r.Context(), userID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

type profileRequest struct {
	Nickname  string `json:"nickname"`
	Phone     string `json:"phone"`
	Signature string `json:"signature"`
	Gender    string `json:"gender"`
	Birthday  string `json:"birthday"`
}

// HandleUpdateProfile replaces the editable profile fields.
//
// HTTP: PUT /api/me
func (h *AccountHandler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	var req profileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	birthday, err := parseDate("birthday", req.Birthday)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	user, err := h.accounts.UpdateProfile(r.Context(), userID, service.ProfileInput{
		Nickname:  req.Nickname,
		Phone:     req.Phone,
		Signature: req.Signature,
		Gender:    req.Gender,
		Birthday:  birthday,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, newUserView(user))
}

// HandleUpdateAvatar takes the raw image as the request body. An empty
// body removes the avatar.
//
// HTTP: PUT /api/me/avatar → 204
func (h *AccountHandler) HandleUpdateAvatar(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, service.MaxAvatarBytes+1))
	if err != nil {
		writeError(w, r, h.logger, apperror.ValidationFailed("avatar", "could not read avatar body"))
		return
	}
	if err := h.accounts.UpdateAvatar(r.Context(), userID, data); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleDeleteAccount removes the caller and everything they own.
//
// HTTP: DELETE /api/me → 204
func (h *AccountHandler) HandleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if err := h.accounts.DeleteAccount(r.Context(), userID); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	h.setTokenCookie(w, r, "", -1)
	w.WriteHeader(http.StatusNoContent)
}
