package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/designmaster/backend/internal/model"
	"github.com/designmaster/backend/internal/repository"
	"github.com/designmaster/backend/internal/service/workflow"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"k8s.io/klog/v2"
)

var (
	ErrUserExists         = errors.New("username or email already exists")
	ErrInvalidUserData    = errors.New("invalid user data")
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrInvalidToken 满足 errors.Is(err, workflow.ErrInvalidCaller)
	ErrInvalidToken = fmt.Errorf("invalid token: %w", workflow.ErrInvalidCaller)
)

// UserService 用户与凭证服务接口
type UserService interface {
	// Register 注册用户并生成 API Token
	Register(ctx context.Context, req *RegisterRequest) (*model.User, error)

	// Login 校验密码，签发 JWT
	Login(ctx context.Context, req *LoginRequest) (*LoginResult, error)

	// RegenerateToken 轮换调用方的 API Token
	RegenerateToken(ctx context.Context, credential string) (string, error)

	// Resolve 将 JWT 或 API Token 解析为用户
	Resolve(ctx context.Context, credential string) (*model.User, error)
}

// RegisterRequest 注册请求
type RegisterRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginRequest 登录请求
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResult 登录结果，AuthToken 用于 MCP 等长期调用
type LoginResult struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	AuthToken string      `json:"auth_token"`
	User      *model.User `json:"user"`
}

type userService struct {
	repo     repository.UserRepository
	secret   []byte
	tokenTTL time.Duration
}

// NewUserService 创建用户服务
func NewUserService(repo repository.UserRepository, jwtSecret string, tokenTTL time.Duration) UserService {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &userService{repo: repo, secret: []byte(jwtSecret), tokenTTL: tokenTTL}
}

func (s *userService) Register(ctx context.Context, req *RegisterRequest) (*model.User, error) {
	username := strings.TrimSpace(req.Username)
	email := strings.TrimSpace(req.Email)
	if username == "" || email == "" || req.Password == "" {
		return nil, ErrInvalidUserData
	}

	if _, err := s.repo.GetByUsername(ctx, username); err == nil {
		return nil, ErrUserExists
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return nil, ErrUserExists
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		AuthToken:    newAuthToken(),
	}
	if err := s.repo.Create(ctx, user); err != nil {
		klog.Errorf("Register: create user failed, username=%s, error=%v", username, err)
		return nil, err
	}

	klog.V(6).Infof("Register: userID=%d, username=%s", user.ID, user.Username)
	return user, nil
}

func (s *userService) Login(ctx context.Context, req *LoginRequest) (*LoginResult, error) {
	user, err := s.repo.GetByUsername(ctx, strings.TrimSpace(req.Username))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		klog.Warningf("Login: password mismatch, username=%s", user.Username)
		return nil, ErrInvalidCredentials
	}

	expiresAt := time.Now().Add(s.tokenTTL)
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatUint(uint64(user.ID), 10),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	klog.V(6).Infof("Login: userID=%d", user.ID)
	return &LoginResult{
		Token:     token,
		ExpiresAt: expiresAt,
		AuthToken: user.AuthToken,
		User:      user,
	}, nil
}

func (s *userService) RegenerateToken(ctx context.Context, credential string) (string, error) {
	user, err := s.Resolve(ctx, credential)
	if err != nil {
		return "", err
	}
	token := newAuthToken()
	if err := s.repo.UpdateAuthToken(ctx, user.ID, token); err != nil {
		klog.Errorf("RegenerateToken: update failed, userID=%d, error=%v", user.ID, err)
		return "", err
	}
	klog.V(6).Infof("RegenerateToken: userID=%d", user.ID)
	return token, nil
}

func (s *userService) Resolve(ctx context.Context, credential string) (*model.User, error) {
	credential = strings.TrimSpace(credential)
	credential = strings.TrimSpace(strings.TrimPrefix(credential, "Bearer "))
	if credential == "" {
		return nil, ErrInvalidToken
	}

	if strings.Count(credential, ".") == 2 {
		userID, err := s.parseJWT(credential)
		if err != nil {
			return nil, err
		}
		user, err := s.repo.GetByID(ctx, userID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, ErrInvalidToken
			}
			return nil, err
		}
		return user, nil
	}

	user, err := s.repo.GetByAuthToken(ctx, credential)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	return user, nil
}

func (s *userService) parseJWT(tokenString string) (uint, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return 0, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	id, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%w: bad subject", ErrInvalidToken)
	}
	return uint(id), nil
}

func newAuthToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
