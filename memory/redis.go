package memory

import (
	"fmt"

	"github.com/curtisnewbie/miso/errs"
	"github.com/curtisnewbie/miso/flow"
	"github.com/curtisnewbie/miso/middleware/redis"
	"github.com/curtisnewbie/miso/util/atom"
)

var _ CheckpointStore = (*RedisCheckpointStore)(nil)

// RedisCheckpointStore keeps checkpoints in redis, shared by all instances of the app.
//
// Redis must be initialized by miso before it's used.
type RedisCheckpointStore struct {
	keyPat  string
	lockPat string
	config  *checkpointConfig
}

func NewRedisCheckpointStore(ops ...CheckpointOpFunc) *RedisCheckpointStore {
	return &RedisCheckpointStore{
		keyPat:  "miso-webagent:checkpoint:%v",
		lockPat: "miso-webagent:checkpoint:lock:%v",
		config:  newCheckpointConfig(ops...),
	}
}

func (s *RedisCheckpointStore) Load(rail flow.Rail, threadID string) (ConversationState, bool, error) {
	st, ok, err := redis.GetJson[ConversationState](rail, fmt.Sprintf(s.keyPat, threadID))
	if err != nil {
		return ConversationState{}, false, errs.Wrapf(err, "failed to load checkpoint of thread %v", threadID)
	}
	if !ok {
		return ConversationState{}, false, nil
	}
	if st.Context == nil {
		st.Context = map[string]any{}
	}
	return st, true, nil
}

func (s *RedisCheckpointStore) Save(rail flow.Rail, threadID string, state ConversationState) error {
	lk := redis.NewRLockf(rail, s.lockPat, threadID)
	if err := lk.Lock(); err != nil {
		return err
	}
	defer lk.Unlock()

	state.UpdatedAt = atom.Now()
	if err := redis.SetJson(rail, fmt.Sprintf(s.keyPat, threadID), state, s.config.ttl); err != nil {
		return errs.Wrapf(err, "failed to save checkpoint of thread %v", threadID)
	}
	return nil
}
