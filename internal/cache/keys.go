package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	UserKeyPrefix          = "user:%d"
	ProjectKeyPrefix       = "project:%d"
	AccessRequestKeyPrefix = "access_request:%s"
)

const (
	UserTTL          = 5 * time.Minute
	ProjectTTL       = 10 * time.Minute
	AccessRequestTTL = 2 * time.Minute
)

func UserKey(userID uint) string {
	return fmt.Sprintf(UserKeyPrefix, userID)
}

func ProjectKey(projectID uint) string {
	return fmt.Sprintf(ProjectKeyPrefix, projectID)
}

func AccessRequestKey(referenceID string) string {
	return fmt.Sprintf(AccessRequestKeyPrefix, referenceID)
}

func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

func InvalidateUser(ctx context.Context, userID uint) {
	Invalidate(ctx, UserKey(userID))
}

func InvalidateProject(ctx context.Context, projectID uint) {
	Invalidate(ctx, ProjectKey(projectID))
}

func InvalidateAccessRequest(ctx context.Context, referenceID string) {
	Invalidate(ctx, AccessRequestKey(referenceID))
}
