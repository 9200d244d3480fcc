package service

import (
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"RagLink/internal/modules/user/application/dto/request"
	"RagLink/internal/modules/user/application/dto/respond"
	"RagLink/internal/modules/user/domain/entity"
	"RagLink/internal/modules/user/domain/repository"
	"RagLink/pkg/util"
	"RagLink/pkg/util/myjwt"
	"RagLink/pkg/xerr"
	"RagLink/pkg/zlog"
)

// UserInfoService 账号注册与登录发token
type UserInfoService interface {
	Register(req request.RegisterRequest) (*respond.RegisterRespond, error)
	Login(req request.LoginRequest) (*respond.LoginRespond, error)
}

type userInfoServiceImpl struct {
	repo      repository.UserInfoRepository
	signToken func(uuid, username string) (string, error)
}

// NewUserInfoService 构造函数
func NewUserInfoService(repo repository.UserInfoRepository) UserInfoService {
	return &userInfoServiceImpl{repo: repo, signToken: myjwt.GenerateToken}
}

func (u *userInfoServiceImpl) Register(req request.RegisterRequest) (*respond.RegisterRespond, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" || req.Password == "" {
		return nil, xerr.New(xerr.BadRequest, "用户名和密码不能为空")
	}

	_, err := u.repo.GetUserInfoByUsername(username)
	if err == nil {
		return nil, xerr.New(xerr.BadRequest, "用户名已存在")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, xerr.Wrap(xerr.InternalServerError, "查询用户失败", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, xerr.Wrap(xerr.InternalServerError, "密码加密失败", err)
	}

	nickname := strings.TrimSpace(req.Nickname)
	if nickname == "" {
		nickname = username
	}
	newUser := entity.UserInfo{
		Uuid:      "u_" + util.GenerateShortUUID(),
		Username:  username,
		Nickname:  nickname,
		Password:  string(hashed),
		Status:    1,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := u.repo.CreateUserInfo(&newUser); err != nil {
		zlog.Error("创建用户失败: " + err.Error())
		return nil, xerr.Wrap(xerr.InternalServerError, "创建用户失败", err)
	}

	return &respond.RegisterRespond{
		Uuid:     newUser.Uuid,
		Username: newUser.Username,
		Nickname: newUser.Nickname,
	}, nil
}

func (u *userInfoServiceImpl) Login(req request.LoginRequest) (*respond.LoginRespond, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" || req.Password == "" {
		return nil, xerr.New(xerr.BadRequest, "用户名和密码不能为空")
	}

	user, err := u.repo.GetUserInfoByUsername(username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, xerr.New(xerr.Unauthorized, "用户名或密码错误")
		}
		return nil, xerr.Wrap(xerr.InternalServerError, "查询用户失败", err)
	}
	if user.Status != 1 {
		return nil, xerr.New(xerr.Forbidden, "账号已被禁用")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, xerr.New(xerr.Unauthorized, "用户名或密码错误")
	}

	token, err := u.signToken(user.Uuid, user.Username)
	if err != nil {
		return nil, xerr.Wrap(xerr.InternalServerError, "生成token失败", err)
	}

	return &respond.LoginRespond{
		Token:    token,
		Uuid:     user.Uuid,
		Username: user.Username,
		Nickname: user.Nickname,
	}, nil
}
