package public

import (
	"github.com/storefront-next/internal/constants"
	"github.com/storefront-next/internal/http/response"
	"github.com/storefront-next/internal/identity"

	"github.com/gin-gonic/gin"
)

// IdentityView 当前身份响应
type IdentityView struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	AvatarURI   string `json:"avatar_uri,omitempty"`
}

func toIdentityView(current *identity.Identity) *IdentityView {
	if current == nil {
		return nil
	}
	return &IdentityView{
		ID:          current.ID,
		Email:       identity.Value(current.Email),
		DisplayName: identity.Value(current.DisplayName),
		AvatarURI:   identity.Value(current.AvatarURI),
	}
}

// SignInRequest 登录请求
type SignInRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// SignUpRequest 注册请求
type SignUpRequest struct {
	Email       string `json:"email" binding:"required"`
	Password    string `json:"password" binding:"required"`
	DisplayName string `json:"display_name"`
}

// DisplayNameRequest 修改昵称请求
type DisplayNameRequest struct {
	DisplayName string `json:"display_name" binding:"required"`
}

// SignIn 用户登录
func (h *Handler) SignIn(c *gin.Context) {
	var req SignInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	sess, ok := h.currentSession(c)
	if !ok {
		return
	}
	err := sess.Identity.SignIn(c.Request.Context(), identity.Credentials{Email: req.Email, Password: req.Password})
	h.recordAuthEvent(c, sess, constants.AuthEventActionSignIn, req.Email, nil, err)
	if err != nil {
		respondAuthError(c, err)
		return
	}
	response.Success(c, gin.H{"user": toIdentityView(sess.Identity.Current())})
}

// SignUp 用户注册
func (h *Handler) SignUp(c *gin.Context) {
	var req SignUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	sess, ok := h.currentSession(c)
	if !ok {
		return
	}
	creds := identity.Credentials{Email: req.Email, Password: req.Password, DisplayName: req.DisplayName}
	err := sess.Identity.SignUp(c.Request.Context(), creds)
	h.recordAuthEvent(c, sess, constants.AuthEventActionSignUp, req.Email, nil, err)
	if err != nil {
		respondAuthError(c, err)
		return
	}
	response.Success(c, gin.H{"user": toIdentityView(sess.Identity.Current())})
}

// SignOut 退出登录，未登录时为空操作
func (h *Handler) SignOut(c *gin.Context) {
	sess, ok := h.currentSession(c)
	if !ok {
		return
	}
	prev := sess.Identity.Current()
	if err := sess.Identity.SignOut(c.Request.Context()); err != nil {
		respondAuthError(c, err)
		return
	}
	if prev != nil {
		h.recordAuthEvent(c, sess, constants.AuthEventActionSignOut, identity.Value(prev.Email), prev, nil)
	}
	response.Success(c, gin.H{"signed_out": true})
}

// GetMe 当前登录身份，未登录时 user 为 null
func (h *Handler) GetMe(c *gin.Context) {
	sess, ok := h.currentSession(c)
	if !ok {
		return
	}
	response.Success(c, gin.H{"user": toIdentityView(sess.Identity.Current())})
}

// UpdateDisplayName 修改昵称
func (h *Handler) UpdateDisplayName(c *gin.Context) {
	var req DisplayNameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	sess, ok := h.currentSession(c)
	if !ok {
		return
	}
	updated, err := sess.Identity.UpdateDisplayName(c.Request.Context(), req.DisplayName)
	if err != nil {
		respondAuthError(c, err)
		return
	}
	response.Success(c, gin.H{"user": toIdentityView(updated)})
}
