package handlers

import (
	"net/http"

	"barberbook/middleware"
	"barberbook/services/identity"
	"barberbook/services/navigation"
	"barberbook/services/role"
	"barberbook/utils"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	Identity identity.IdentityProvider
	Tracker  *role.Tracker
}

func NewAuthHandler(idp identity.IdentityProvider, tracker *role.Tracker) *AuthHandler {
	return &AuthHandler{Identity: idp, Tracker: tracker}
}

type signUpRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// SignUpHandler handles POST /api/auth/signup.
func (h *AuthHandler) SignUpHandler(c *gin.Context) {
	var req signUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid request", err.Error())
		return
	}
	res, err := h.Identity.SignUp(c.Request.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		respondError(c, "Sign up failed", err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// LoginHandler handles POST /api/auth/login.
func (h *AuthHandler) LoginHandler(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid request", err.Error())
		return
	}
	res, err := h.Identity.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, "Login failed", err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// LogoutHandler handles POST /api/auth/logout.
func (h *AuthHandler) LogoutHandler(c *gin.Context) {
	token := middleware.TokenFrom(c)
	if token == "" {
		utils.JSONError(c, http.StatusUnauthorized, "Insufficient authorization", "no session to sign out")
		return
	}
	if err := h.Identity.SignOut(c.Request.Context(), token); err != nil {
		respondError(c, "Logout failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Signed out"})
}

// SessionHandler handles GET /api/session. It reports the caller's session,
// role and navigation view, including failed resolutions.
func (h *AuthHandler) SessionHandler(c *gin.Context) {
	res := middleware.ResolutionFrom(c)
	body := gin.H{
		"session":    middleware.SessionFrom(c),
		"resolution": res,
		"view":       navigation.Gate(res),
	}
	if res.Err != nil {
		body["details"] = res.Err.Error()
	}
	c.JSON(http.StatusOK, body)
}
