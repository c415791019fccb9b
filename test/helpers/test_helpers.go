package helpers

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/lifelink/donor-gateway/internal/repository"
	"github.com/lifelink/donor-gateway/pkg/pg"
	"github.com/lifelink/donor-gateway/pkg/redis"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func SetupTestDB(t *testing.T) *pg.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&repository.DonorProfileEntity{},
		&repository.DeviceTokenEntity{},
		&repository.RequisitionEntity{},
		&repository.NotificationEntity{},
		&repository.ResponseEntity{},
		&repository.TenantPushConfigEntity{},
	)
	require.NoError(t, err)

	pgDB := &pg.DB{}
	pgDBValue := reflect.ValueOf(pgDB).Elem()

	readField := pgDBValue.FieldByName("read")
	writeField := pgDBValue.FieldByName("write")

	readField = reflect.NewAt(readField.Type(), readField.Addr().UnsafePointer()).Elem()
	writeField = reflect.NewAt(writeField.Type(), writeField.Addr().UnsafePointer()).Elem()

	readField.Set(reflect.ValueOf(db))
	writeField.Set(reflect.ValueOf(db))

	return pgDB
}

func SetupTestRedis(t *testing.T) (*miniredis.Miniredis, redis.RedisAdapter) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	adapter, err := redis.NewRedisAdapter("test", "", &goredis.UniversalOptions{
		Addrs: []string{mr.Addr()},
	})
	require.NoError(t, err)

	return mr, adapter
}

func CreateTestDonor(t *testing.T, db *pg.DB, userID int64, group string) *repository.DonorProfileEntity {
	ctx := context.Background()
	donor := &repository.DonorProfileEntity{
		UserID:         userID,
		TenantID:       1,
		BloodGroup:     group,
		Location:       "Springfield",
		ContactPhone:   "+15551230000",
		IsDonor:        true,
		IsActive:       true,
		ContactVisible: true,
	}
	err := db.Write(ctx).Create(donor).Error
	require.NoError(t, err)
	return donor
}

func CreateTestDeviceToken(t *testing.T, db *pg.DB, donorID int64, token string) *repository.DeviceTokenEntity {
	ctx := context.Background()
	dt := &repository.DeviceTokenEntity{
		DonorID:  donorID,
		Token:    token,
		Platform: "android",
		IsActive: true,
	}
	err := db.Write(ctx).Create(dt).Error
	require.NoError(t, err)
	return dt
}

func CreateTestRequisition(t *testing.T, db *pg.DB, requesterID int64, group string, expiresAt time.Time) *repository.RequisitionEntity {
	ctx := context.Background()
	rq := &repository.RequisitionEntity{
		RequesterID:        requesterID,
		TenantID:           1,
		PatientName:        "J. Doe",
		HospitalName:       "City General",
		BloodGroup:         group,
		UnitsNeeded:        3,
		Urgency:            "HIGH",
		Location:           "Springfield",
		RequiredBy:         expiresAt,
		ExpiresAt:          expiresAt,
		AllowContactReveal: true,
		Status:             "ACTIVE",
	}
	err := db.Write(ctx).Create(rq).Error
	require.NoError(t, err)
	return rq
}

func WaitForCondition(t *testing.T, timeout time.Duration, condition func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}

func AssertEventually(t *testing.T, timeout time.Duration, condition func() bool, msg string) {
	if !WaitForCondition(t, timeout, condition) {
		t.Fatal(msg)
	}
}

func ContextWithTimeout(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}

func Ptr[T any](v T) *T {
	return &v
}
