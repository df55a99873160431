// Package modelmongo stores and loads entity snapshots as MongoDB documents
package modelmongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spiral/models"
	"github.com/spiral/models/modelsql"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// =====================================
// Connection
// =====================================

// Source is a connected client bound to one database
type Source struct {
	client   *mongo.Client
	database *mongo.Database
}

// SupportedDrivers returns the list of supported database drivers
func SupportedDrivers() []string {
	return []string{"mongodb", "mongo"}
}

// Open connects and pings the primary
func Open(ctx context.Context, config models.SourceConfig) (*Source, error) {
	clientOpts := options.Client().ApplyURI(buildConnectionURI(config))
	if mongoOpts := config.AdapterOptions("mongo"); mongoOpts != nil {
		applyClientOptions(clientOpts, mongoOpts)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, models.NewErrorWithCause(models.ErrorTypeConnection, "failed to connect to MongoDB", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, models.NewErrorWithCause(models.ErrorTypeConnection, "failed to ping MongoDB", err)
	}

	return &Source{client: client, database: client.Database(config.Database)}, nil
}

// Collection returns a handle on a collection of the bound database
func (s *Source) Collection(name string) *mongo.Collection {
	return s.database.Collection(name)
}

// Close disconnects the client
func (s *Source) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// buildConnectionURI builds MongoDB connection URI
func buildConnectionURI(config models.SourceConfig) string {
	if config.ConnectionURL != "" {
		return config.ConnectionURL
	}

	uri := "mongodb://"
	if config.Username != "" {
		uri += config.Username
		if config.Password != "" {
			uri += ":" + config.Password
		}
		uri += "@"
	}

	host := config.Host
	if host == "" {
		host = "localhost"
	}
	port := config.Port
	if port == 0 {
		port = 27017
	}
	uri += fmt.Sprintf("%s:%d", host, port)

	if config.Database != "" {
		uri += "/" + config.Database
	}

	if config.SSL.Enabled {
		uri += "?ssl=true"
		if config.SSL.CAFile != "" {
			uri += "&sslCAFile=" + config.SSL.CAFile
		}
		if config.SSL.CertFile != "" {
			uri += "&sslCertificateKeyFile=" + config.SSL.CertFile
		}
	}

	return uri
}

// applyClientOptions applies MongoDB-specific client options
func applyClientOptions(clientOpts *options.ClientOptions, mongoOpts map[string]interface{}) {
	if maxPoolSize, ok := mongoOpts["max_pool_size"].(int); ok {
		clientOpts.SetMaxPoolSize(uint64(maxPoolSize))
	}
	if minPoolSize, ok := mongoOpts["min_pool_size"].(int); ok {
		clientOpts.SetMinPoolSize(uint64(minPoolSize))
	}
	if maxIdleTime, ok := mongoOpts["max_idle_time"].(time.Duration); ok {
		clientOpts.SetMaxConnIdleTime(maxIdleTime)
	}
	if appName, ok := mongoOpts["app_name"].(string); ok {
		clientOpts.SetAppName(appName)
	}
}

// =====================================
// Documents
// =====================================

// ToDocument packs the entity and converts the result into an ordered document
func ToDocument(entity *models.DataEntity) bson.D {
	return fieldsToDocument(entity.Serialize())
}

// FromDocument converts a document into ordered fields; nested documents become *Fields
func FromDocument(doc bson.D) *models.Fields {
	fields := models.NewFields()
	for _, elem := range doc {
		fields.Set(elem.Key, fromBSON(elem.Value))
	}
	return fields
}

func fieldsToDocument(fields *models.Fields) bson.D {
	doc := make(bson.D, 0, fields.Len())
	for pair := fields.Oldest(); pair != nil; pair = pair.Next() {
		doc = append(doc, bson.E{Key: pair.Key, Value: toBSON(pair.Value)})
	}
	return doc
}

func toBSON(value any) any {
	switch v := value.(type) {
	case *models.Fields:
		return fieldsToDocument(v)
	case []any:
		arr := make(bson.A, len(v))
		for i, item := range v {
			arr[i] = toBSON(item)
		}
		return arr
	case map[string]any:
		return fieldsToDocument(models.FieldsOf(v))
	}
	return value
}

func fromBSON(value any) any {
	switch v := value.(type) {
	case bson.D:
		return FromDocument(v)
	case bson.A:
		items := make([]any, len(v))
		for i, item := range v {
			items[i] = fromBSON(item)
		}
		return items
	case bson.M:
		return fromBSON(mapToDocument(v))
	}
	return value
}

func mapToDocument(m bson.M) bson.D {
	fields := models.FieldsOf(map[string]any(m))
	doc := make(bson.D, 0, fields.Len())
	for pair := fields.Oldest(); pair != nil; pair = pair.Next() {
		doc = append(doc, bson.E{Key: pair.Key, Value: pair.Value})
	}
	return doc
}

// =====================================
// Loading and Saving
// =====================================

// Find decodes every matching document through the factory
func Find(ctx context.Context, collection *mongo.Collection, filter any, factory modelsql.Factory, opts ...*options.FindOptions) ([]*models.DataEntity, error) {
	if filter == nil {
		filter = bson.D{}
	}

	cursor, err := collection.Find(ctx, filter, opts...)
	if err != nil {
		return nil, convertMongoError(err)
	}
	defer cursor.Close(ctx)

	var entities []*models.DataEntity
	for cursor.Next(ctx) {
		var doc bson.D
		if err := cursor.Decode(&doc); err != nil {
			return nil, models.NewErrorWithCause(models.ErrorTypeSerialization, "failed to decode document", err)
		}
		entity, err := factory(FromDocument(doc))
		if err != nil {
			return nil, err
		}
		entities = append(entities, entity)
	}

	if err := cursor.Err(); err != nil {
		return nil, convertMongoError(err)
	}
	return entities, nil
}

// FindOne decodes the first matching document
func FindOne(ctx context.Context, collection *mongo.Collection, filter any, factory modelsql.Factory) (*models.DataEntity, error) {
	if filter == nil {
		filter = bson.D{}
	}

	var doc bson.D
	if err := collection.FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, convertMongoError(err)
	}
	return factory(FromDocument(doc))
}

// Insert stores the packed entity and returns the inserted id
func Insert(ctx context.Context, collection *mongo.Collection, entity *models.DataEntity) (any, error) {
	result, err := collection.InsertOne(ctx, ToDocument(entity))
	if err != nil {
		return nil, convertMongoError(err)
	}
	return result.InsertedID, nil
}

// =====================================
// Error Conversion
// =====================================

// convertMongoError converts MongoDB errors to entity errors
func convertMongoError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return models.NewErrorWithCause(models.ErrorTypeNotFound, "document not found", err)
	case errors.Is(err, mongo.ErrNilDocument), errors.Is(err, mongo.ErrNilValue):
		return models.NewErrorWithCause(models.ErrorTypeSerialization, "nil document provided", err)
	}

	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) {
		switch cmdErr.Code {
		case 26, 48:
			return models.NewErrorWithCause(models.ErrorTypeNotFound, "collection not found", err)
		case 13:
			return models.NewErrorWithCause(models.ErrorTypeConnection, "unauthorized access", err)
		case 18:
			return models.NewErrorWithCause(models.ErrorTypeConnection, "authentication failed", err)
		}
	}

	errStr := strings.ToLower(err.Error())
	if strings.Contains(errStr, "timeout") || strings.Contains(errStr, "deadline exceeded") {
		return models.NewErrorWithCause(models.ErrorTypeConnection, "operation timeout", err)
	}

	return models.NewErrorWithCause(models.ErrorTypeConnection, "database operation failed", err)
}
