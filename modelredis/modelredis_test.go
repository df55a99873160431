package modelredis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/spiral/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

func TestEncodeDecode(t *testing.T) {
	for _, format := range []string{FormatJSON, FormatMsgpack} {
		t.Run(format, func(t *testing.T) {
			store := NewStore(nil, WithFormat(format))
			entity := models.NewDataEntity(models.Pairs("name", "ann", "age", int64(30)))

			data, err := store.encode(entity)
			require.NoError(t, err)

			decoded := models.NewDataEntity(nil)
			require.NoError(t, store.decode(data, decoded))
			assert.Equal(t, []string{"name", "age"}, decoded.Keys())

			name, err := decoded.Get("name")
			require.NoError(t, err)
			assert.Equal(t, "ann", name)
		})
	}
}

func TestUnsupportedFormat(t *testing.T) {
	store := NewStore(nil, WithFormat("xml"))
	_, err := store.encode(models.NewDataEntity(nil))
	assert.True(t, models.IsErrorType(err, models.ErrorTypeUnsupported))
}

func TestKeyPrefix(t *testing.T) {
	assert.Equal(t, "user:1", NewStore(nil).key("user:1"))
	assert.Equal(t, "app:user:1", NewStore(nil, WithPrefix("app")).key("user:1"))
}

func TestConvertRedisError(t *testing.T) {
	err := convertRedisError(redis.Nil, "user:1")
	assert.True(t, models.IsNotFound(err))
	assert.Contains(t, err.Error(), "[user:1]")

	assert.True(t, models.IsErrorType(convertRedisError(errors.New("i/o timeout"), ""), models.ErrorTypeConnection))
}

// RedisStoreTestSuite runs against a local Redis on database 15
type RedisStoreTestSuite struct {
	suite.Suite
	store *Store
	ctx   context.Context
}

func (suite *RedisStoreTestSuite) SetupSuite() {
	suite.ctx = context.Background()

	store, err := Open(suite.ctx, models.SourceConfig{
		Driver:   "redis",
		Host:     "localhost",
		Port:     6379,
		Database: "15",
		Options: map[string]interface{}{
			"redis": map[string]interface{}{
				"dial_timeout": time.Second,
				"prefix":       "models_test",
			},
		},
	})
	if err != nil {
		suite.T().Skipf("Redis not available: %v", err)
	}
	suite.store = store
}

func (suite *RedisStoreTestSuite) TearDownSuite() {
	if suite.store != nil {
		_ = suite.store.Delete(suite.ctx, "a", "b")
		suite.store.Close()
	}
}

func (suite *RedisStoreTestSuite) TestSaveLoad() {
	schema := models.OpenSchema()
	entity := models.NewEntity(schema, models.Pairs("title", "hello"))
	require.NoError(suite.T(), suite.store.Save(suite.ctx, "a", entity, time.Minute))

	loaded := models.NewEntity(schema, nil)
	require.NoError(suite.T(), suite.store.Load(suite.ctx, "a", loaded))
	title, _ := loaded.Get("title")
	assert.Equal(suite.T(), "hello", title)

	err := suite.store.Load(suite.ctx, "missing", models.NewDataEntity(nil))
	assert.True(suite.T(), models.IsNotFound(err))
}

func (suite *RedisStoreTestSuite) TestLoadMany() {
	require.NoError(suite.T(), suite.store.Save(suite.ctx, "b", models.NewDataEntity(models.Pairs("n", "b")), 0))

	entities, err := suite.store.LoadMany(suite.ctx, []string{"b", "nope"}, func() *models.DataEntity {
		return models.NewDataEntity(nil)
	})
	require.NoError(suite.T(), err)
	require.Len(suite.T(), entities, 2)
	assert.NotNil(suite.T(), entities[0])
	assert.Nil(suite.T(), entities[1])
}

func TestRedisStoreSuite(t *testing.T) {
	suite.Run(t, new(RedisStoreTestSuite))
}
