package db

import (
	"context"
	"sort"

	"github.com/SaiNageswarS/go-api-boot/odm"
	"github.com/SaiNageswarS/go-collection-boot/async"
	"github.com/clipmind/clipmind/workflow"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// JobModel is the Mongo document shape for a workflow job.
type JobModel struct {
	ID          string          `bson:"_id"`
	VideoID     string          `bson:"videoId"`
	SessionID   string          `bson:"sessionId"`
	MediaURI    string          `bson:"mediaUri"`
	State       string          `bson:"state"`
	StepHistory []workflow.Step `bson:"stepHistory"`
	FailedStep  string          `bson:"failedStep,omitempty"`
	Err         string          `bson:"error,omitempty"`
	CreatedOn   int64           `bson:"createdOn"`
	UpdatedOn   int64           `bson:"updatedOn"`
}

func (m JobModel) Id() string {
	return m.ID
}

func (m JobModel) CollectionName() string {
	return "jobs"
}

func toJobModel(job *workflow.Job) JobModel {
	return JobModel{
		ID:          job.ID,
		VideoID:     job.VideoID,
		SessionID:   job.SessionID,
		MediaURI:    job.MediaURI,
		State:       string(job.State),
		StepHistory: job.StepHistory,
		FailedStep:  job.FailedStep,
		Err:         job.Err,
		CreatedOn:   job.CreatedAt.Unix(),
		UpdatedOn:   job.UpdatedAt.Unix(),
	}
}

func toJob(m JobModel) *workflow.Job {
	return &workflow.Job{
		ID:          m.ID,
		VideoID:     m.VideoID,
		SessionID:   m.SessionID,
		MediaURI:    m.MediaURI,
		State:       workflow.State(m.State),
		StepHistory: m.StepHistory,
		FailedStep:  m.FailedStep,
		Err:         m.Err,
	}
}

// JobRepository persists workflow jobs in Mongo, satisfying workflow.Store.
type JobRepository struct {
	mongo  odm.MongoClient
	tenant string
}

func ProvideJobRepository(mongo odm.MongoClient, tenant string) *JobRepository {
	return &JobRepository{mongo: mongo, tenant: tenant}
}

func (r *JobRepository) Save(ctx context.Context, job *workflow.Job) error {
	_, err := async.Await(odm.CollectionOf[JobModel](r.mongo, r.tenant).Save(ctx, toJobModel(job)))
	return err
}

func (r *JobRepository) FindOneByID(ctx context.Context, jobID string) (*workflow.Job, error) {
	model, err := async.Await(odm.CollectionOf[JobModel](r.mongo, r.tenant).FindOneByID(ctx, jobID))
	if err != nil {
		return nil, err
	}
	if model == nil {
		return nil, workflow.ErrJobNotFound
	}
	return toJob(*model), nil
}

func (r *JobRepository) FindByVideoID(ctx context.Context, videoID string) (*workflow.Job, error) {
	models, err := async.Await(odm.CollectionOf[JobModel](r.mongo, r.tenant).
		Find(ctx, bson.M{"videoId": videoID}, nil, 0, 0))
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, workflow.ErrJobNotFound
	}
	sort.Slice(models, func(i, j int) bool { return models[i].CreatedOn > models[j].CreatedOn })
	return toJob(models[0]), nil
}
