package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"carmarket/api/internal/api/middleware"
	"carmarket/api/internal/auth"
	"carmarket/api/internal/config"
	"carmarket/api/internal/services"
)

// RestUserHandler handles user accounts and sessions.
type RestUserHandler struct {
	users  services.IUserService
	brands services.IBrandService
	cfg    *config.Config
}

func NewRestUserHandler(users services.IUserService, brands services.IBrandService, cfg *config.Config) *RestUserHandler {
	return &RestUserHandler{users: users, brands: brands, cfg: cfg}
}

// setSession issues a JWT and stores it in the HTTP-only session cookie.
func setSession(c *gin.Context, cfg *config.Config, accountID string, kind auth.AccountKind, email string, isAdmin bool) (string, bool) {
	token, err := auth.GenerateJWT(accountID, kind, email, isAdmin, cfg.JwtSecret, cfg.JwtTTL)
	if err != nil {
		respondError(c, err, "Failed to create session.")
		return "", false
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(cfg.CookieName, token, int(cfg.JwtTTL.Seconds()), "/", "", cfg.CookieSecure, true)
	return token, true
}

type signupRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phoneNumber"`
	Password    string `json:"password"`
}

// Signup handles POST /users/auth/signup
func (h *RestUserHandler) Signup(c *gin.Context) {
	var req signupRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.users.Signup(c.Request.Context(), req.Name, req.Email, req.PhoneNumber, req.Password)
	if err != nil {
		respondError(c, err, "An error occurred during signup.")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "User created successfully.", "user": user})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login handles POST /users/auth/login
func (h *RestUserHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.users.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err, "An error occurred during login.")
		return
	}
	token, ok := setSession(c, h.cfg, user.ID.Hex(), auth.KindUser, user.Email, user.IsAdmin())
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Login successful.", "user": user, "token": token})
}

// Logout handles POST /users/auth/logout
func (h *RestUserHandler) Logout(c *gin.Context) {
	if cookie, err := c.Cookie(h.cfg.CookieName); err != nil || cookie == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Already logged out."})
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cfg.CookieName, "", -1, "/", "", h.cfg.CookieSecure, true)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

// Me handles GET /users/auth/me for both user and brand sessions.
func (h *RestUserHandler) Me(c *gin.Context) {
	actor := middleware.Actor(c)
	id, err := primitive.ObjectIDFromHex(actor.ID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Not authenticated."})
		return
	}

	var account any
	if middleware.AccountKind(c) == auth.KindBrand {
		account, err = h.brands.FindByID(c.Request.Context(), id)
	} else {
		account, err = h.users.FindByID(c.Request.Context(), id)
	}
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			c.JSON(http.StatusNotFound, gin.H{"message": "User not found."})
			return
		}
		respondError(c, err, "Server error.")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Authenticated.", "user": account})
}

// ListUsers handles GET /users (admin)
func (h *RestUserHandler) ListUsers(c *gin.Context) {
	users, err := h.users.ListNonAdmin(c.Request.Context())
	if err != nil {
		respondError(c, err, "An error occurred.")
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// DeleteUser handles DELETE /users/:id
func (h *RestUserHandler) DeleteUser(c *gin.Context) {
	userID, ok := pathID(c, "id")
	if !ok {
		return
	}
	user, err := h.users.Delete(c.Request.Context(), middleware.Actor(c), userID)
	if err != nil {
		respondError(c, err, "An error occurred.")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User deleted successfully.", "user": user})
}
