package memory

import (
	"github.com/curtisnewbie/miso/errs"
	"github.com/curtisnewbie/miso/flow"
	"github.com/curtisnewbie/miso/miso"
	"github.com/curtisnewbie/miso/util/atom"
	"github.com/curtisnewbie/miso/util/json"
	lru "github.com/hashicorp/golang-lru"
)

// InMemoryCheckpointStore keeps a json snapshot of each thread in process memory, nothing survives a restart.
type InMemoryCheckpointStore struct {
	cache *lru.Cache
}

func NewInMemoryCheckpointStore(ops ...CheckpointOpFunc) (*InMemoryCheckpointStore, error) {
	c := newCheckpointConfig(ops...)
	cache, err := lru.NewWithEvict(c.capacity, func(key interface{}, _ interface{}) {
		miso.EmptyRail().Infof("Checkpoint of thread %v evicted", key)
	})
	if err != nil {
		return nil, errs.Wrap(err)
	}
	return &InMemoryCheckpointStore{cache: cache}, nil
}

func (s *InMemoryCheckpointStore) Load(rail flow.Rail, threadID string) (ConversationState, bool, error) {
	v, ok := s.cache.Get(threadID)
	if !ok {
		return ConversationState{}, false, nil
	}
	var st ConversationState
	if err := json.ParseJson(v.([]byte), &st); err != nil {
		return ConversationState{}, false, errs.Wrapf(err, "failed to load checkpoint of thread %v", threadID)
	}
	if st.Context == nil {
		st.Context = map[string]any{}
	}
	return st, true, nil
}

func (s *InMemoryCheckpointStore) Save(rail flow.Rail, threadID string, state ConversationState) error {
	state.UpdatedAt = atom.Now()
	buf, err := json.WriteJson(state)
	if err != nil {
		return errs.Wrapf(err, "failed to save checkpoint of thread %v", threadID)
	}
	s.cache.Add(threadID, buf)
	return nil
}

// Evict the thread, returns false if it's not found.
func (s *InMemoryCheckpointStore) Evict(threadID string) bool {
	return s.cache.Remove(threadID)
}

// Number of threads.
func (s *InMemoryCheckpointStore) Len() int {
	return s.cache.Len()
}
