package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore implements Store on MongoDB. Each table is one collection; the
// primary key is the compound _id {p, s} and attributes live under "item" with
// N values stored as Decimal128.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

type mongoID struct {
	P string `bson:"p"`
	S string `bson:"s"`
}

type mongoDoc struct {
	ID   mongoID `bson:"_id"`
	Item bson.M  `bson:"item"`
}

func NewMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return &MongoStore{client: client, db: client.Database(database)}, nil
}

func (m *MongoStore) Close() error { return m.client.Disconnect(context.Background()) }

func (m *MongoStore) coll(t Table) *mongo.Collection { return m.db.Collection(t.Name) }

func (m *MongoStore) Put(ctx context.Context, t Table, it Item) error {
	k, err := t.KeyOf(it)
	if err != nil {
		return err
	}
	doc, err := toBSONItem(it)
	if err != nil {
		return err
	}
	id := mongoID{P: k.Partition, S: k.Sort}
	_, err = m.coll(t).ReplaceOne(ctx, bson.M{"_id": id}, mongoDoc{ID: id, Item: doc}, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("mongo replace: %w", err)
	}
	return nil
}

func (m *MongoStore) Get(ctx context.Context, t Table, k Key) (Item, error) {
	var doc mongoDoc
	err := m.coll(t).FindOne(ctx, bson.M{"_id": mongoID{P: k.Partition, S: k.Sort}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("mongo find: %w", err)
	}
	return fromBSONItem(doc.Item)
}

func (m *MongoStore) UpdateField(ctx context.Context, t Table, k Key, field string, v Value) error {
	if err := checkField(t, field); err != nil {
		return err
	}
	bv, err := toBSON(v)
	if err != nil {
		return err
	}
	res, err := m.coll(t).UpdateOne(ctx,
		bson.M{"_id": mongoID{P: k.Partition, S: k.Sort}},
		bson.M{"$set": bson.M{"item." + field: bv}})
	if err != nil {
		return fmt.Errorf("mongo update: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *MongoStore) Delete(ctx context.Context, t Table, k Key) error {
	if _, err := m.coll(t).DeleteOne(ctx, bson.M{"_id": mongoID{P: k.Partition, S: k.Sort}}); err != nil {
		return fmt.Errorf("mongo delete: %w", err)
	}
	return nil
}

func (m *MongoStore) Scan(ctx context.Context, t Table, in ScanInput) (Page, error) {
	filter := bson.M{}
	if sk := in.StartKey; sk != nil {
		filter = bson.M{"$or": bson.A{
			bson.M{"_id.p": bson.M{"$gt": sk.Partition}},
			bson.M{"_id.p": sk.Partition, "_id.s": bson.M{"$gt": sk.Sort}},
		}}
	}
	limit := pageLimit(in)
	opts := options.Find().
		SetSort(bson.D{{Key: "_id.p", Value: 1}, {Key: "_id.s", Value: 1}}).
		SetLimit(int64(limit + 1))
	cur, err := m.coll(t).Find(ctx, filter, opts)
	if err != nil {
		return Page{}, fmt.Errorf("mongo find: %w", err)
	}
	defer cur.Close(ctx)

	var page Page
	var last mongoID
	for cur.Next(ctx) {
		if len(page.Items) == limit {
			page.LastKey = &Key{Partition: last.P, Sort: last.S}
			break
		}
		var doc mongoDoc
		if err := cur.Decode(&doc); err != nil {
			return Page{}, fmt.Errorf("mongo decode: %w", err)
		}
		it, err := fromBSONItem(doc.Item)
		if err != nil {
			return Page{}, err
		}
		page.Items = append(page.Items, it)
		last = doc.ID
	}
	if err := cur.Err(); err != nil {
		return Page{}, fmt.Errorf("mongo cursor: %w", err)
	}
	return page, nil
}

func toBSONItem(it Item) (bson.M, error) {
	out := make(bson.M, len(it))
	for k, v := range it {
		bv, err := toBSON(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		out[k] = bv
	}
	return out, nil
}

func toBSON(v Value) (any, error) {
	switch v.Kind() {
	case "S":
		return *v.S, nil
	case "N":
		d, err := primitive.ParseDecimal128(*v.N)
		if err != nil {
			return nil, err
		}
		return d, nil
	case "BOOL":
		return *v.BOOL, nil
	case "NULL", "":
		return nil, nil
	case "M":
		return toBSONItem(Item(v.M))
	case "L":
		arr := make(bson.A, 0, len(v.L))
		for _, e := range v.L {
			be, err := toBSON(e)
			if err != nil {
				return nil, err
			}
			arr = append(arr, be)
		}
		return arr, nil
	}
	return nil, fmt.Errorf("unsupported tag %q", v.Kind())
}

func fromBSONItem(m bson.M) (Item, error) {
	it := make(Item, len(m))
	for k, raw := range m {
		v, err := fromBSON(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		it[k] = v
	}
	return it, nil
}

func fromBSON(raw any) (Value, error) {
	switch x := raw.(type) {
	case nil:
		return Null(), nil
	case string:
		return String(x), nil
	case primitive.Decimal128:
		n := x.String()
		return Value{N: &n}, nil
	case int32:
		return Int(int64(x)), nil
	case int64:
		return Int(x), nil
	case float64:
		return Number(decimal.NewFromFloat(x)), nil
	case bool:
		return Bool(x), nil
	case bson.M:
		it, err := fromBSONItem(x)
		if err != nil {
			return Value{}, err
		}
		return Map(it), nil
	case bson.D:
		m := make(bson.M, len(x))
		for _, e := range x {
			m[e.Key] = e.Value
		}
		return fromBSON(m)
	case bson.A:
		l := make([]Value, 0, len(x))
		for _, e := range x {
			v, err := fromBSON(e)
			if err != nil {
				return Value{}, err
			}
			l = append(l, v)
		}
		return List(l...), nil
	}
	return Value{}, fmt.Errorf("unsupported bson type %T", raw)
}
