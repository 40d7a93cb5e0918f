// internal/repository/mongo/tx.go
package mongo

import (
	"coachdesk/coaching-app/internal/repository"
	"context"

	"go.mongodb.org/mongo-driver/mongo"
)

// mongoTxRunner implements repository.TxRunner on top of MongoDB
// sessions. Requires a replica set (or mongos) deployment; standalone
// servers reject transactions.
type mongoTxRunner struct {
	client *mongo.Client
}

// NewMongoTxRunner creates a TxRunner bound to the given client.
func NewMongoTxRunner(client *mongo.Client) repository.TxRunner {
	return &mongoTxRunner{client: client}
}

// WithinTx runs fn inside a single MongoDB transaction. The session
// context is passed down so repository calls made by fn join the same
// transaction.
func (t *mongoTxRunner) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	session, err := t.client.StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		return nil, fn(sessCtx)
	})
	return err
}
