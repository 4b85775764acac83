package gateway

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/linkwatch/linkwatch/internal/types"
)

// MongoGateway is an alternate Persistence Gateway backend, grounded
// on the teacher's internal/storage/database.go MongoStorage — a
// document per link row instead of a relational table, selectable for
// an off-box mirror the inspection service can read over the network.
type MongoGateway struct {
	client     *mongo.Client
	collection *mongo.Collection
}

type linkDoc struct {
	StartURL       string    `bson:"start_url"`
	URL            string    `bson:"url"`
	Parent         string    `bson:"parent"`
	Duration       int64     `bson:"duration"`
	Size           int64     `bson:"size"`
	ContentType    string    `bson:"content_type"`
	ResponseCode   int       `bson:"response_code"`
	ResponseReason string    `bson:"response_reason"`
	Date           time.Time `bson:"date"`
}

// OpenMongo connects to uri and prepares the collection's indices —
// equivalent to the relational gateway's four indices, expressed as
// Mongo index specs.
func OpenMongo(uri, database, collection string) (*MongoGateway, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongodb connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("mongodb ping: %w", err)
	}

	coll := client.Database(database).Collection(collection)
	_, err = coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "url", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "parent", Value: 1}}},
		{Keys: bson.D{{Key: "response_code", Value: 1}, {Key: "start_url", Value: 1}}},
		{Keys: bson.D{{Key: "parent", Value: 1}, {Key: "start_url", Value: 1}}},
	})
	if err != nil {
		return nil, fmt.Errorf("mongodb create indices: %w", err)
	}

	return &MongoGateway{client: client, collection: coll}, nil
}

func (g *MongoGateway) Upsert(result *types.FetchResult, startURL string) error {
	link := types.NewLink(result, startURL)
	doc := linkDoc{
		StartURL:       link.StartURL,
		URL:            link.URL,
		Parent:         link.Parent,
		Duration:       int64(link.Duration),
		Size:           link.Size,
		ContentType:    link.ContentType,
		ResponseCode:   link.ResponseCode,
		ResponseReason: link.ResponseReason,
		Date:           link.Date,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := g.collection.ReplaceOne(ctx, bson.M{"url": doc.URL}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("mongodb upsert: %w", err)
	}
	return nil
}

func (g *MongoGateway) InvalidateChildren(parentURL, startURL string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := g.collection.DeleteMany(ctx, bson.M{"parent": parentURL, "start_url": startURL})
	if err != nil {
		return fmt.Errorf("mongodb invalidate children: %w", err)
	}
	return nil
}

func (g *MongoGateway) SelectBrokenParents(startURL string) ([]string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	results, err := g.collection.Distinct(ctx, "parent", bson.M{
		"response_code": bson.M{"$ne": types.CodeSuccess},
		"start_url":     startURL,
		"parent":        bson.M{"$ne": ""},
	})
	if err != nil {
		return nil, fmt.Errorf("mongodb select broken parents: %w", err)
	}

	parents := make([]string, 0, len(results))
	for _, r := range results {
		if s, ok := r.(string); ok {
			parents = append(parents, s)
		}
	}
	return parents, nil
}

func (g *MongoGateway) ParentOf(url string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var doc linkDoc
	err := g.collection.FindOne(ctx, bson.M{"url": url}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("mongodb lookup parent: %w", err)
	}
	return doc.Parent, nil
}

func (g *MongoGateway) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return g.client.Disconnect(ctx)
}
