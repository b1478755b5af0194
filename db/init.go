package db

import (
	"context"

	"github.com/SaiNageswarS/go-api-boot/odm"
)

func InitClipmindDB(ctx context.Context, mongo odm.MongoClient, tenant string) error {
	err := odm.EnsureIndexes[SessionModel](ctx, mongo, tenant)
	if err != nil {
		return err
	}

	err = odm.EnsureIndexes[JobModel](ctx, mongo, tenant)
	if err != nil {
		return err
	}

	return nil
}
