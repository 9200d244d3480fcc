package repository

import "RagLink/internal/modules/user/domain/entity"

// UserInfoRepository 接口定义
type UserInfoRepository interface {
	CreateUserInfo(user *entity.UserInfo) error
	GetUserInfoByUsername(username string) (*entity.UserInfo, error)
	GetUserInfoByUUID(uuid string) (*entity.UserInfo, error)
}
