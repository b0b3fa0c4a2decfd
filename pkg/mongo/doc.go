// Package mongo connects to the MongoDB deployment used by the document
// secret store.
//
// Configuration comes from MONGODB_* environment variables. Connect retries
// the initial ping; Database additionally selects the configured database.
//
//	cfg, err := config.Load[mongo.Config]()
//	db, err := mongo.Database(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer db.Client().Disconnect(context.Background())
package mongo
