package repository

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type mongoSettlement struct {
	client *mongo.Client
	users  *mongo.Collection
	carts  *mongo.Collection
	outbox *mongo.Collection
}

// NewMongoSettlement needs a replica set (or Atlas); standalone servers
// reject multi-document transactions.
func NewMongoSettlement(db *mongo.Database) SettlementStore {
	return &mongoSettlement{
		client: db.Client(),
		users:  db.Collection("users"),
		carts:  db.Collection("carts"),
		outbox: db.Collection("outbox"),
	}
}

func (m mongoSettlement) Settle(ctx context.Context, userID string, total float64, cartVersion int64, event *OutboxEvent) error {
	session, err := m.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		// Debit re-asserts the balance inside the transaction; if a
		// concurrent spend drained the wallet the filter matches nothing.
		debitFilter := bson.M{
			"_id":            userID,
			"wallet_balance": bson.M{"$gte": total},
		}
		debit := bson.M{"$inc": bson.M{"wallet_balance": -total}}
		res, err := m.users.UpdateOne(sc, debitFilter, debit)
		if err != nil {
			return nil, fmt.Errorf("failed to debit wallet: %w", err)
		}
		if res.MatchedCount == 0 {
			return nil, ErrSettleConflict
		}

		clearFilter := bson.M{"user_id": userID, "version": cartVersion}
		clearUpdate := bson.M{
			"$set": bson.M{"items": []interface{}{}},
			"$inc": bson.M{"version": 1},
		}
		res, err = m.carts.UpdateOne(sc, clearFilter, clearUpdate)
		if err != nil {
			return nil, fmt.Errorf("failed to clear cart: %w", err)
		}
		if res.MatchedCount == 0 {
			return nil, ErrSettleConflict
		}

		if _, err := m.outbox.InsertOne(sc, event); err != nil {
			return nil, fmt.Errorf("failed to insert outbox event: %w", err)
		}

		return nil, nil
	})

	return err
}
