package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"voiary/internal/models"
	"voiary/pkg/config"
	"voiary/pkg/logger"
	"voiary/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type signUpRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=6"`
	DisplayName string `json:"displayName" binding:"required,min=1"`
}

type signInRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// 注册：校验通过后创建用户；配置了邮件则发送确认邮件，否则直接激活
func (h *Handlers) handleUserSignup(c *gin.Context) {
	var req signUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, "invalid email, password or display name", nil)
		return
	}

	if _, err := models.GetUserByEmail(h.db, req.Email); err == nil {
		response.Fail(c, "email already registered", nil)
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		logger.Error("user lookup failed", zap.Error(err))
		response.Fail(c, "sign up failed", nil)
		return
	}

	// 邮件未配置时直接激活（开发环境）
	activated := h.mail == nil
	user, err := models.CreateUser(h.db, req.Email, req.Password, req.DisplayName, activated)
	if err != nil {
		logger.Error("user create failed", zap.Error(err))
		response.Fail(c, "sign up failed", nil)
		return
	}

	if h.mail != nil {
		confirmURL := fmt.Sprintf("%s%s/%s/confirm?token=%s",
			config.GlobalConfig.BaseURL,
			config.GlobalConfig.APIPrefix,
			config.GlobalConfig.AuthPrefix,
			user.ConfirmToken,
		)
		go func() {
			if err := h.mail.SendConfirmEmail(user.Email, user.DisplayName, confirmURL); err != nil {
				logger.Warn("send confirm mail failed", zap.String("email", user.Email), zap.Error(err))
			}
		}()
		response.Success(c, "sign up success, please check your email", gin.H{"email": user.Email})
		return
	}
	response.Success(c, "sign up success", gin.H{"email": user.Email})
}

// 邮箱确认回调
func (h *Handlers) handleUserConfirm(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing token"})
		return
	}
	user, err := models.ConfirmUser(h.db, token)
	if err != nil {
		response.Fail(c, "invalid or expired confirm token", nil)
		return
	}
	response.Success(c, "email confirmed", gin.H{"email": user.Email})
}

// 登录
func (h *Handlers) handleUserSignin(c *gin.Context) {
	var req signInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, "invalid email or password", nil)
		return
	}

	user, err := models.GetUserByEmail(h.db, req.Email)
	if err != nil || !user.CheckPassword(req.Password) {
		response.Fail(c, "wrong email or password", nil)
		return
	}
	if !user.Activated {
		response.Fail(c, "email not confirmed", nil)
		return
	}

	if err := models.Login(c, user); err != nil {
		logger.Error("session save failed", zap.Error(err))
		response.Fail(c, "sign in failed", nil)
		return
	}
	models.TouchLastLogin(h.db, user)
	response.Success(c, "sign in success", user)
}

// 登出：清空本地会话，回到匿名状态
func (h *Handlers) handleUserLogout(c *gin.Context) {
	if err := models.Logout(c); err != nil {
		logger.Error("session clear failed", zap.Error(err))
		response.Fail(c, "sign out failed", nil)
		return
	}
	response.Success(c, "sign out success", nil)
}

func (h *Handlers) handleUserInfo(c *gin.Context) {
	response.Success(c, "ok", models.CurrentUser(c))
}
