package ratecard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/gyeh/billaudit/internal/model"
)

// Service keys may contain '.', so the rate card is stored one document per
// key in its own collection rather than as a map field.
type mongoEntry struct {
	ServiceKey   string             `bson:"_id"`
	Observations []mongoObservation `bson:"observations"`
	AveragePrice float64            `bson:"average_price"`
	LastUpdated  time.Time          `bson:"last_updated"`
}

type mongoObservation struct {
	Price     float64   `bson:"price"`
	City      string    `bson:"city"`
	Timestamp time.Time `bson:"timestamp"`
}

type mongoHistory struct {
	ID        string             `bson:"_id"`
	Bills     []model.BillRecord `bson:"bills"`
	UpdatedAt time.Time          `bson:"updated_at"`
}

const mongoHistoryID = "history"

// MongoBackend stores entries in "rate_card" and the history as a single
// document in "bill_history".
type MongoBackend struct {
	client  *mongo.Client
	entries *mongo.Collection
	history *mongo.Collection
}

// ConnectMongo dials uri and returns a backend on database dbName.
func ConnectMongo(ctx context.Context, uri, dbName string) (*MongoBackend, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	db := client.Database(dbName)
	return &MongoBackend{
		client:  client,
		entries: db.Collection("rate_card"),
		history: db.Collection("bill_history"),
	}, nil
}

func (b *MongoBackend) Load(ctx context.Context) (*model.Document, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	doc := model.NewDocument()

	cur, err := b.entries.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("find rate card: %w", err)
	}
	var entries []mongoEntry
	if err := cur.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("decode rate card: %w", err)
	}
	for _, me := range entries {
		e := model.LedgerEntry{
			ServiceKey:   me.ServiceKey,
			AveragePrice: me.AveragePrice,
			LastUpdated:  me.LastUpdated,
		}
		for _, o := range me.Observations {
			e.Observations = append(e.Observations, model.PriceObservation(o))
		}
		doc.RateCard[e.ServiceKey] = e
	}

	var h mongoHistory
	err = b.history.FindOne(ctx, bson.M{"_id": mongoHistoryID}).Decode(&h)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return doc, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find bill history: %w", err)
	}
	if h.Bills != nil {
		doc.Bills = h.Bills
	}
	return doc, nil
}

func (b *MongoBackend) PutEntry(ctx context.Context, entry model.LedgerEntry) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	me := mongoEntry{
		ServiceKey:   entry.ServiceKey,
		AveragePrice: entry.AveragePrice,
		LastUpdated:  entry.LastUpdated,
		Observations: make([]mongoObservation, len(entry.Observations)),
	}
	for i, o := range entry.Observations {
		me.Observations[i] = mongoObservation(o)
	}
	_, err := b.entries.ReplaceOne(ctx, bson.M{"_id": me.ServiceKey}, me, options.Replace().SetUpsert(true))
	return err
}

func (b *MongoBackend) PutBills(ctx context.Context, bills []model.BillRecord) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	h := mongoHistory{ID: mongoHistoryID, Bills: bills, UpdatedAt: time.Now().UTC()}
	_, err := b.history.ReplaceOne(ctx, bson.M{"_id": mongoHistoryID}, h, options.Replace().SetUpsert(true))
	return err
}

func (b *MongoBackend) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return b.client.Disconnect(ctx)
}
