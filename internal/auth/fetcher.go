package auth

import (
	"context"

	"gorm.io/gorm"

	"github.com/campprojects/dashboard/internal/utils"
)

type SessionInfo struct {
	DB *gorm.DB
}

func (si SessionInfo) FindSessionByID(ctx context.Context, id string) (utils.SessionData, error) {
	var session Session

	err := si.DB.WithContext(ctx).First(&session, "session_id = ?", id).Error
	if err != nil {
		return utils.SessionData{}, err
	}

	return utils.SessionData{
		SessionID: session.SessionID,
		Admin:     session.Admin,
		ExpiresAt: session.ExpiresAt,
	}, nil
}
