package models

import (
	"net/http"
	"time"

	constants "voiary/pkg/constant"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type User struct {
	ID           uint       `json:"id" gorm:"primaryKey"`
	Email        string     `json:"email" gorm:"size:128;uniqueIndex"`
	Password     string     `json:"-" gorm:"size:128"` // bcrypt hash
	DisplayName  string     `json:"displayName" gorm:"size:128"`
	Activated    bool       `json:"activated"`
	ConfirmToken string     `json:"-" gorm:"size:64;index"`
	LastLoginAt  *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt    time.Time  `json:"updatedAt" gorm:"autoUpdateTime"`
}

// HashPassword 生成密码哈希
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword 校验密码
func (u *User) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)) == nil
}

// CreateUser 创建用户，激活状态由调用方根据邮件配置决定
func CreateUser(db *gorm.DB, email, password, displayName string, activated bool) (*User, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	user := &User{
		Email:        email,
		Password:     hash,
		DisplayName:  displayName,
		Activated:    activated,
		ConfirmToken: uuid.NewString(),
	}
	if err := db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

func GetUserByEmail(db *gorm.DB, email string) (*User, error) {
	var user User
	if err := db.Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func GetUserByID(db *gorm.DB, id uint) (*User, error) {
	var user User
	if err := db.First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// ConfirmUser 通过确认令牌激活用户
func ConfirmUser(db *gorm.DB, token string) (*User, error) {
	var user User
	if err := db.Where("confirm_token = ?", token).First(&user).Error; err != nil {
		return nil, err
	}
	user.Activated = true
	user.ConfirmToken = ""
	if err := db.Save(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func TouchLastLogin(db *gorm.DB, user *User) {
	now := time.Now()
	user.LastLoginAt = &now
	db.Model(user).Update("last_login_at", now)
}

// Login 将用户写入 session
func Login(c *gin.Context, user *User) error {
	session := sessions.Default(c)
	session.Set(constants.SessionField, user.ID)
	c.Set(constants.UserField, user)
	return session.Save()
}

// Logout 清空 session
func Logout(c *gin.Context) error {
	session := sessions.Default(c)
	session.Clear()
	session.Options(sessions.Options{MaxAge: -1, Path: "/"})
	return session.Save()
}

// CurrentUser 返回当前登录用户，未登录返回 nil
func CurrentUser(c *gin.Context) *User {
	if v, ok := c.Get(constants.UserField); ok {
		if user, ok := v.(*User); ok {
			return user
		}
	}

	session := sessions.Default(c)
	raw := session.Get(constants.SessionField)
	userID, ok := raw.(uint)
	if !ok {
		return nil
	}

	db, ok := c.MustGet(constants.DbField).(*gorm.DB)
	if !ok {
		return nil
	}
	user, err := GetUserByID(db, userID)
	if err != nil {
		return nil
	}
	c.Set(constants.UserField, user)
	return user
}

// AuthRequired 认证中间件，未登录返回 401
func AuthRequired(c *gin.Context) {
	if CurrentUser(c) == nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.Next()
}
