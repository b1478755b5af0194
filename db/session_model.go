package db

import (
	"context"
	"time"

	"github.com/SaiNageswarS/go-api-boot/odm"
	"github.com/SaiNageswarS/go-collection-boot/async"
	"github.com/google/uuid"
)

// A single exchange between the user and an agent. Cited chunk ids point into
// the video index that grounded the answer; empty for non-grounded agents.
type TurnModel struct {
	UserInput     string   `bson:"userInput"`
	AgentUsed     string   `bson:"agentUsed"`
	CitedChunkIds []string `bson:"citedChunkIds"`
	Answer        string   `bson:"answer"`
	Model         string   `bson:"model"`
}

type SessionModel struct {
	ID        string      `bson:"_id"`
	VideoID   string      `bson:"videoId"`
	MediaURI  string      `bson:"mediaUri"`
	Turns     []TurnModel `bson:"turns"`
	CreatedOn int64       `bson:"createdOn"`
}

func NewSessionModel() *SessionModel {
	return &SessionModel{
		ID:        uuid.New().String(),
		Turns:     []TurnModel{},
		CreatedOn: time.Now().Unix(),
	}
}

func (m SessionModel) Id() string {
	if len(m.ID) == 0 {
		return uuid.New().String()
	}
	return m.ID
}

func (m SessionModel) CollectionName() string {
	return "sessions"
}

// SessionRepository persists chat sessions in Mongo.
type SessionRepository struct {
	mongo  odm.MongoClient
	tenant string
}

func ProvideSessionRepository(mongo odm.MongoClient, tenant string) *SessionRepository {
	return &SessionRepository{mongo: mongo, tenant: tenant}
}

func (r *SessionRepository) Save(ctx context.Context, session *SessionModel) error {
	_, err := async.Await(odm.CollectionOf[SessionModel](r.mongo, r.tenant).Save(ctx, *session))
	return err
}

// FindOneByID returns (nil, nil) when the session does not exist.
func (r *SessionRepository) FindOneByID(ctx context.Context, sessionID string) (*SessionModel, error) {
	return async.Await(odm.CollectionOf[SessionModel](r.mongo, r.tenant).FindOneByID(ctx, sessionID))
}
