// Package mongo stores hotels and usage records in MongoDB. Commits run in a
// multi-document transaction, so the server must be a replica set.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/julianstephens/banquet/internal/constants"
	"github.com/julianstephens/banquet/internal/models"
	"github.com/julianstephens/banquet/internal/storage"
)

const (
	hotelsCollection  = "hotels"
	recordsCollection = "usage_records"
)

var recordSort = bson.D{{Key: "date", Value: 1}, {Key: "timing_rank", Value: 1}, {Key: "client", Value: 1}}

type Store struct {
	uri      string
	database string
	client   *mongo.Client
	hotels   *mongo.Collection
	records  *mongo.Collection
}

// New takes a mongodb:// URI. The database is the URI path, or the app name.
func New(uri string) *Store {
	database := constants.AppName
	if u, err := url.Parse(uri); err == nil {
		if name := strings.Trim(u.Path, "/"); name != "" {
			database = name
		}
	}
	return &Store{uri: uri, database: database}
}

func (s *Store) connect(ctx context.Context) error {
	if s.client != nil {
		return nil
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(s.uri).SetTimeout(10*time.Second))
	if err != nil {
		return fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	db := client.Database(s.database)
	s.client = client
	s.hotels = db.Collection(hotelsCollection)
	s.records = db.Collection(recordsCollection)
	return nil
}

func (s *Store) Init(ctx context.Context) error {
	if err := s.connect(ctx); err != nil {
		return err
	}

	_, err := s.hotels.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "city_key", Value: 1}, {Key: "name_key", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create hotel index: %w", err)
	}

	_, err = s.records.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "hotel_id", Value: 1}, {Key: "date", Value: 1},
				{Key: "timing", Value: 1}, {Key: "client", Value: 1},
			},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "month", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create record indexes: %w", err)
	}
	return nil
}

func (s *Store) Load(ctx context.Context) error {
	return s.connect(ctx)
}

func (s *Store) Close() error {
	if s.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := s.client.Disconnect(ctx)
	s.client = nil
	return err
}

func (s *Store) GetConfigPath() string {
	return "mongodb/" + s.database
}

// Drop removes the database. Used by tests.
func (s *Store) Drop(ctx context.Context) error {
	if s.client == nil {
		return storage.ErrNotLoaded
	}
	return s.client.Database(s.database).Drop(ctx)
}

func (s *Store) AddHotel(ctx context.Context, h *models.Hotel) error {
	if s.client == nil {
		return storage.ErrNotLoaded
	}
	now := time.Now().UTC()
	doc := toHotelDoc(h)
	doc.Version = 1
	doc.CreatedAt, doc.UpdatedAt = now, now
	if _, err := s.hotels.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %s", storage.ErrDuplicateHotel, h)
		}
		return fmt.Errorf("failed to add hotel: %w", err)
	}
	h.Version, h.CreatedAt, h.UpdatedAt = 1, now, now
	return nil
}

func (s *Store) findHotel(ctx context.Context, filter bson.M, what string) (*models.Hotel, error) {
	if s.client == nil {
		return nil, storage.ErrNotLoaded
	}
	var doc hotelDoc
	if err := s.hotels.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("hotel %s: %w", what, storage.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get hotel: %w", err)
	}
	return doc.model(), nil
}

func (s *Store) GetHotel(ctx context.Context, id string) (*models.Hotel, error) {
	return s.findHotel(ctx, bson.M{"_id": id}, id)
}

func (s *Store) GetHotelByName(ctx context.Context, city, name string) (*models.Hotel, error) {
	filter := bson.M{
		"city_key": strings.ToLower(strings.TrimSpace(city)),
		"name_key": strings.ToLower(strings.TrimSpace(name)),
	}
	return s.findHotel(ctx, filter, name+" ("+city+")")
}

func (s *Store) GetAllHotels(ctx context.Context) ([]*models.Hotel, error) {
	if s.client == nil {
		return nil, storage.ErrNotLoaded
	}
	opts := options.Find().SetSort(bson.D{{Key: "city", Value: 1}, {Key: "name", Value: 1}})
	cursor, err := s.hotels.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list hotels: %w", err)
	}
	var docs []hotelDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode hotels: %w", err)
	}
	hotels := make([]*models.Hotel, 0, len(docs))
	for _, d := range docs {
		hotels = append(hotels, d.model())
	}
	return hotels, nil
}

func (s *Store) GetRecord(ctx context.Context, id string) (*models.UsageRecord, error) {
	if s.client == nil {
		return nil, storage.ErrNotLoaded
	}
	var doc recordDoc
	if err := s.records.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("record %s: %w", id, storage.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get record: %w", err)
	}
	return doc.model(), nil
}

func (s *Store) FindRecords(ctx context.Context, hotelID string, from, to time.Time) ([]*models.UsageRecord, error) {
	if s.client == nil {
		return nil, storage.ErrNotLoaded
	}
	filter := bson.M{"hotel_id": hotelID}
	dateRange := bson.M{}
	if !from.IsZero() {
		dateRange["$gte"] = formatDate(from)
	}
	if !to.IsZero() {
		dateRange["$lte"] = formatDate(to)
	}
	if len(dateRange) > 0 {
		filter["date"] = dateRange
	}

	cursor, err := s.records.Find(ctx, filter, options.Find().SetSort(recordSort))
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	var docs []recordDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode records: %w", err)
	}
	records := make([]*models.UsageRecord, 0, len(docs))
	for _, d := range docs {
		records = append(records, d.model())
	}
	return records, nil
}

func (s *Store) LatestRecord(ctx context.Context, hotelID string) (*models.UsageRecord, error) {
	if s.client == nil {
		return nil, storage.ErrNotLoaded
	}
	opts := options.FindOne().SetSort(bson.D{
		{Key: "date", Value: -1}, {Key: "timing_rank", Value: -1}, {Key: "client", Value: -1},
	})
	var doc recordDoc
	if err := s.records.FindOne(ctx, bson.M{"hotel_id": hotelID}, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("records of hotel %s: %w", hotelID, storage.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get latest record: %w", err)
	}
	return doc.model(), nil
}

// Commit applies cs in a transaction. The hotel update is filtered on its version.
func (s *Store) Commit(ctx context.Context, cs storage.Changeset) error {
	if cs.IsEmpty() {
		return nil
	}
	if s.client == nil {
		return storage.ErrNotLoaded
	}
	storage.Stamp(cs, time.Now().UTC())

	session, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, s.apply(sc, cs)
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %v", storage.ErrDuplicateRecord, err)
		}
		return err
	}
	if cs.Hotel != nil {
		cs.Hotel.Version++
	}
	return nil
}

func (s *Store) apply(ctx context.Context, cs storage.Changeset) error {
	if h := cs.Hotel; h != nil {
		doc := toHotelDoc(h)
		doc.Version = h.Version + 1
		res, err := s.hotels.ReplaceOne(ctx, bson.M{"_id": h.ID, "version": h.Version}, doc)
		if err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return fmt.Errorf("%w: %s", storage.ErrDuplicateHotel, h)
			}
			return fmt.Errorf("failed to update hotel: %w", err)
		}
		if res.MatchedCount == 0 {
			n, err := s.hotels.CountDocuments(ctx, bson.M{"_id": h.ID})
			if err != nil {
				return fmt.Errorf("failed to update hotel: %w", err)
			}
			if n == 0 {
				return fmt.Errorf("hotel %s: %w", h.ID, storage.ErrNotFound)
			}
			return storage.ErrStaleHotel
		}
	}

	for _, id := range cs.Delete {
		res, err := s.records.DeleteOne(ctx, bson.M{"_id": id})
		if err != nil {
			return fmt.Errorf("failed to delete record: %w", err)
		}
		if res.DeletedCount == 0 {
			return fmt.Errorf("record %s: %w", id, storage.ErrNotFound)
		}
	}
	for _, r := range cs.Update {
		res, err := s.records.ReplaceOne(ctx, bson.M{"_id": r.ID}, toRecordDoc(r))
		if err != nil {
			return fmt.Errorf("failed to update record: %w", err)
		}
		if res.MatchedCount == 0 {
			return fmt.Errorf("record %s: %w", r.ID, storage.ErrNotFound)
		}
	}
	if len(cs.Create) > 0 {
		docs := make([]interface{}, 0, len(cs.Create))
		for _, r := range cs.Create {
			docs = append(docs, toRecordDoc(r))
		}
		if _, err := s.records.InsertMany(ctx, docs); err != nil {
			return err
		}
	}
	return nil
}

var _ storage.Provider = (*Store)(nil)
