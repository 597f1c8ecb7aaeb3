package content

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"eduplatform/internal/pkg/apperror"
)

// Presigner is the subset of *minio.Client used to sign object URLs.
type Presigner interface {
	PresignedGetObject(ctx context.Context, bucketName, objectName string, expires time.Duration, reqParams url.Values) (*url.URL, error)
}

// AccessChecker answers whether a user may open a level.
type AccessChecker interface {
	HasAccess(ctx context.Context, userID, levelID uuid.UUID) (bool, error)
}

type PlaybackURL struct {
	URL       string    `json:"url"`
	Object    string    `json:"object"`
	ExpiresAt time.Time `json:"expires_at"`
}

type Service interface {
	PlaybackURL(ctx context.Context, userID, levelID uuid.UUID, object string) (*PlaybackURL, error)
}

type service struct {
	presigner Presigner
	access    AccessChecker
	bucket    string
	expiry    time.Duration
}

func NewService(presigner Presigner, access AccessChecker, bucket string, expiry time.Duration) Service {
	return &service{
		presigner: presigner,
		access:    access,
		bucket:    bucket,
		expiry:    expiry,
	}
}

func (s *service) PlaybackURL(ctx context.Context, userID, levelID uuid.UUID, object string) (*PlaybackURL, error) {
	key, err := objectKey(levelID, object)
	if err != nil {
		return nil, err
	}

	ok, err := s.access.HasAccess(ctx, userID, levelID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperror.Forbidden("you do not have access to this level")
	}

	signed, err := s.presigner.PresignedGetObject(ctx, s.bucket, key, s.expiry, nil)
	if err != nil {
		return nil, apperror.Wrap(apperror.CodeDependency, err, "failed to sign playback url")
	}

	return &PlaybackURL{
		URL:       signed.String(),
		Object:    key,
		ExpiresAt: time.Now().Add(s.expiry),
	}, nil
}

// objectKey confines object to the level's prefix.
func objectKey(levelID uuid.UUID, object string) (string, error) {
	object = strings.TrimSpace(object)
	if object == "" {
		return "", apperror.Validation("object is required")
	}
	cleaned := path.Clean("/" + object)
	if cleaned == "/" || strings.Contains(object, "..") {
		return "", apperror.Validation("object must be a path inside the level")
	}
	return fmt.Sprintf("levels/%s%s", levelID, cleaned), nil
}
