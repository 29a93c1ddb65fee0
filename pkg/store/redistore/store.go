// The redistore package persists the results of ranking runs in Redis.
// Every run is namespaced by its runID:
//   - run:<runID>                HASH with the run summary (see RunFields)
//   - run:<runID>:node:<nodeID>  HASH with the result of a node (see NodeFields)
//   - run:<runID>:ranks          ZSET of zero-padded nodeIDs scored by rank
package redistore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vertex-lab/sybilrank/pkg/models"
	"github.com/vertex-lab/sybilrank/pkg/utils/redisutils"
)

const (
	KeyRunPrefix  string = "run:"
	KeyNodeInfix  string = ":node:"
	KeyRanksSufix string = ":ranks"
)

// RankStore saves and queries ranking results in Redis.
type RankStore struct {
	client *redis.Client
}

// RunFields are the fields of a run HASH. Used to serialize and deserialize.
type RunFields struct {
	Algorithm string `redis:"algorithm"`
	Rounds    int    `redis:"rounds"`
	Ranked    int    `redis:"ranked"`
	Excluded  int    `redis:"excluded"`
	Isolated  int    `redis:"isolated"`
	Timestamp int64  `redis:"timestamp"`
}

// NodeFields are the fields of a node HASH. Used to serialize and deserialize.
type NodeFields struct {
	ID     uint32  `redis:"id"`
	Type   string  `redis:"type"`
	Rank   float64 `redis:"rank"`
	Status string  `redis:"status"`
}

func (n NodeFields) result() models.Result {
	return models.Result{
		ID:     n.ID,
		Type:   models.NodeType(n.Type),
		Rank:   n.Rank,
		Status: n.Status,
	}
}

// NewRankStore() returns a RankStore using the provided Redis client.
func NewRankStore(cl *redis.Client) (*RankStore, error) {
	if cl == nil {
		return nil, ErrNilClientPointer
	}
	return &RankStore{client: cl}, nil
}

// Validate() returns an error if the store or its client are nil.
func (s *RankStore) Validate() error {
	if s == nil {
		return ErrNilStorePointer
	}

	if s.client == nil {
		return ErrNilClientPointer
	}

	return nil
}

// SaveRun() saves the summary of the run. The Timestamp defaults to now.
func (s *RankStore) SaveRun(ctx context.Context, runID string, fields RunFields) error {
	if err := s.Validate(); err != nil {
		return err
	}

	if err := validateRunID(runID); err != nil {
		return err
	}

	if fields.Timestamp == 0 {
		fields.Timestamp = time.Now().Unix()
	}

	return s.client.HSet(ctx, KeyRun(runID), fields).Err()
}

// Run() returns the summary of the run.
func (s *RankStore) Run(ctx context.Context, runID string) (RunFields, error) {
	if err := s.Validate(); err != nil {
		return RunFields{}, err
	}

	cmd := s.client.HGetAll(ctx, KeyRun(runID))
	if cmd.Err() != nil {
		return RunFields{}, cmd.Err()
	}

	// an empty map means the run was not found
	if len(cmd.Val()) == 0 {
		return RunFields{}, fmt.Errorf("%w: %q", ErrRunNotFound, runID)
	}

	var fields RunFields
	if err := cmd.Scan(&fields); err != nil {
		return RunFields{}, err
	}

	return fields, nil
}

/*
SaveResults() replaces the results of the run with the specified ones, in a
single transaction. Nodes of a previous save that are missing from results are removed.
*/
func (s *RankStore) SaveResults(ctx context.Context, runID string, results []models.Result) error {
	if err := s.Validate(); err != nil {
		return err
	}

	if err := validateRunID(runID); err != nil {
		return err
	}

	// the nodes of the previous save, if any
	oldIDs, err := s.rankedIDs(ctx, runID, 0, -1)
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, KeyRanks(runID))
	for _, ID := range oldIDs {
		pipe.Del(ctx, KeyRunNode(runID, ID))
	}

	members := make([]redis.Z, 0, len(results))
	for _, result := range results {
		fields := NodeFields{
			ID:     result.ID,
			Type:   string(result.Type),
			Rank:   result.Rank,
			Status: result.Status,
		}

		pipe.HSet(ctx, KeyRunNode(runID, result.ID), fields)
		members = append(members, redis.Z{Score: result.Rank, Member: redisutils.FormatPaddedID(result.ID)})
	}

	if len(members) > 0 {
		pipe.ZAdd(ctx, KeyRanks(runID), members...)
	}

	_, err = pipe.Exec(ctx)
	return err
}

// Lowest() returns the n results of the run with the lowest rank, which are the
// most likely to be sybils. Nodes with the same rank are ordered by ascending nodeID.
func (s *RankStore) Lowest(ctx context.Context, runID string, n int) ([]models.Result, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	if n <= 0 {
		return []models.Result{}, nil
	}

	IDs, err := s.rankedIDs(ctx, runID, 0, int64(n-1))
	if err != nil {
		return nil, err
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(IDs))
	for i, ID := range IDs {
		cmds[i] = pipe.HGetAll(ctx, KeyRunNode(runID, ID))
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}

	results := make([]models.Result, 0, len(cmds))
	for i, cmd := range cmds {
		if len(cmd.Val()) == 0 {
			return nil, fmt.Errorf("%w: node %d of run %q", ErrNodeNotFound, IDs[i], runID)
		}

		var fields NodeFields
		if err := cmd.Scan(&fields); err != nil {
			return nil, err
		}
		results = append(results, fields.result())
	}

	return results, nil
}

// NodeResult() returns the result of nodeID in the run.
func (s *RankStore) NodeResult(ctx context.Context, runID string, nodeID uint32) (models.Result, error) {
	if err := s.Validate(); err != nil {
		return models.Result{}, err
	}

	cmd := s.client.HGetAll(ctx, KeyRunNode(runID, nodeID))
	if cmd.Err() != nil {
		return models.Result{}, cmd.Err()
	}

	if len(cmd.Val()) == 0 {
		return models.Result{}, fmt.Errorf("%w: node %d of run %q", ErrNodeNotFound, nodeID, runID)
	}

	var fields NodeFields
	if err := cmd.Scan(&fields); err != nil {
		return models.Result{}, err
	}

	return fields.result(), nil
}

// DeleteRun() removes the summary and all the results of the run.
func (s *RankStore) DeleteRun(ctx context.Context, runID string) error {
	if err := s.Validate(); err != nil {
		return err
	}

	IDs, err := s.rankedIDs(ctx, runID, 0, -1)
	if err != nil {
		return err
	}

	keys := make([]string, 0, len(IDs)+2)
	keys = append(keys, KeyRun(runID), KeyRanks(runID))
	for _, ID := range IDs {
		keys = append(keys, KeyRunNode(runID, ID))
	}

	return s.client.Del(ctx, keys...).Err()
}

// rankedIDs() returns the nodeIDs of the run between the start and stop positions
// of the ranks ZSET, in ascending rank order.
func (s *RankStore) rankedIDs(ctx context.Context, runID string, start, stop int64) ([]uint32, error) {
	members, err := s.client.ZRange(ctx, KeyRanks(runID), start, stop).Result()
	if err != nil {
		return nil, err
	}
	return redisutils.ParseIDs(members)
}

func validateRunID(runID string) error {
	if runID == "" {
		return ErrEmptyRunID
	}
	return nil
}

// KeyRun() returns the Redis key for the run summary
func KeyRun(runID string) string {
	return KeyRunPrefix + runID
}

// KeyRunNode() returns the Redis key for the result of nodeID in the run
func KeyRunNode(runID string, nodeID uint32) string {
	return KeyRunPrefix + runID + KeyNodeInfix + redisutils.FormatID(nodeID)
}

// KeyRanks() returns the Redis key for the ranks of the run
func KeyRanks(runID string) string {
	return KeyRunPrefix + runID + KeyRanksSufix
}

//---------------------------------ERROR-CODES---------------------------------

var ErrNilClientPointer = errors.New("nil redis client pointer")
var ErrNilStorePointer = errors.New("nil rank store pointer")
var ErrEmptyRunID = fmt.Errorf("%w: empty runID", models.ErrConfiguration)
var ErrRunNotFound = errors.New("run not found")
var ErrNodeNotFound = errors.New("node result not found")
