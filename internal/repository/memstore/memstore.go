// Package memstore is an in-memory repository.Store for tests and local
// development without PostgreSQL.
//
// Transactions are serialized store-wide, so the store cannot reveal a
// missing per-account lock. Concurrency guarantees are checked against
// PostgreSQL and by asserting the engine's locks directly.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"wolf-tap/internal/model"
	"wolf-tap/internal/repository"
)

// Store is an in-memory repository.Store. Transactions run serially on
// a copy of the state that replaces the original only on commit.
type Store struct {
	txMu  sync.Mutex
	mu    sync.RWMutex
	state *memState
	repos *memRepos
}

type pairKey [2]int64

type memState struct {
	seq        int64
	users      map[int64]*model.User
	ledger     []*model.Transaction
	tasks      map[int64]*model.Task
	userTasks  map[pairKey]*model.UserTask
	badges     map[int64]*model.Badge
	userBadges map[pairKey]*model.UserBadge
	links      map[int64]*model.SocialLink
	claims     map[pairKey]bool
	settings   *model.CoinSettings
}

var _ repository.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	s := &Store{state: &memState{
		users:      map[int64]*model.User{},
		tasks:      map[int64]*model.Task{},
		userTasks:  map[pairKey]*model.UserTask{},
		badges:     map[int64]*model.Badge{},
		userBadges: map[pairKey]*model.UserBadge{},
		links:      map[int64]*model.SocialLink{},
		claims:     map[pairKey]bool{},
	}}
	s.repos = &memRepos{store: s}
	return s
}

func (st *memState) next() int64 {
	st.seq++
	return st.seq
}

func (st *memState) clone() *memState {
	c := &memState{
		seq:        st.seq,
		users:      make(map[int64]*model.User, len(st.users)),
		ledger:     make([]*model.Transaction, len(st.ledger)),
		tasks:      make(map[int64]*model.Task, len(st.tasks)),
		userTasks:  make(map[pairKey]*model.UserTask, len(st.userTasks)),
		badges:     make(map[int64]*model.Badge, len(st.badges)),
		userBadges: make(map[pairKey]*model.UserBadge, len(st.userBadges)),
		links:      make(map[int64]*model.SocialLink, len(st.links)),
		claims:     make(map[pairKey]bool, len(st.claims)),
	}
	for k, v := range st.users {
		c.users[k] = copyUser(v)
	}
	for i, e := range st.ledger {
		cp := *e
		c.ledger[i] = &cp
	}
	for k, v := range st.tasks {
		cp := *v
		c.tasks[k] = &cp
	}
	for k, v := range st.userTasks {
		cp := *v
		c.userTasks[k] = &cp
	}
	for k, v := range st.badges {
		cp := *v
		c.badges[k] = &cp
	}
	for k, v := range st.userBadges {
		cp := *v
		c.userBadges[k] = &cp
	}
	for k, v := range st.links {
		cp := *v
		c.links[k] = &cp
	}
	for k, v := range st.claims {
		c.claims[k] = v
	}
	if st.settings != nil {
		cp := *st.settings
		c.settings = &cp
	}
	return c
}

func copyUser(u *model.User) *model.User {
	cp := *u
	if u.ReferrerID != nil {
		id := *u.ReferrerID
		cp.ReferrerID = &id
	}
	return &cp
}

func (s *Store) Users() repository.Users       { return s.repos.Users() }
func (s *Store) Ledger() repository.Ledger     { return s.repos.Ledger() }
func (s *Store) Tasks() repository.Tasks       { return s.repos.Tasks() }
func (s *Store) Badges() repository.Badges     { return s.repos.Badges() }
func (s *Store) Social() repository.Social     { return s.repos.Social() }
func (s *Store) Settings() repository.Settings { return s.repos.Settings() }

func (s *Store) InTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	work := s.state.clone()
	s.mu.RUnlock()

	if err := fn(&memRepos{store: s, tx: work}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	s.state = work
	s.mu.Unlock()
	return nil
}

// memRepos binds the repositories to a transaction's working state, or to
// the committed state when tx is nil.
type memRepos struct {
	store *Store
	tx    *memState
}

func (r *memRepos) read(fn func(st *memState)) {
	if r.tx != nil {
		fn(r.tx)
		return
	}
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	fn(r.store.state)
}

func (r *memRepos) write(fn func(st *memState) error) error {
	if r.tx != nil {
		return fn(r.tx)
	}
	r.store.txMu.Lock()
	defer r.store.txMu.Unlock()
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return fn(r.store.state)
}

func (r *memRepos) Users() repository.Users       { return memUsers{r} }
func (r *memRepos) Ledger() repository.Ledger     { return memLedger{r} }
func (r *memRepos) Tasks() repository.Tasks       { return memTasks{r} }
func (r *memRepos) Badges() repository.Badges     { return memBadges{r} }
func (r *memRepos) Social() repository.Social     { return memSocial{r} }
func (r *memRepos) Settings() repository.Settings { return memSettings{r} }

type memUsers struct{ *memRepos }

func (r memUsers) Create(_ context.Context, u *model.User) (*model.User, error) {
	var created *model.User
	err := r.write(func(st *memState) error {
		for _, other := range st.users {
			if other.TelegramID == u.TelegramID {
				return repository.ErrUserExists
			}
			if other.ReferralCode == u.ReferralCode {
				return repository.ErrReferralCodeTaken
			}
		}
		now := time.Now()
		stored := copyUser(u)
		stored.ID = st.next()
		stored.Coins = 0
		stored.Version = 1
		stored.CreatedAt, stored.UpdatedAt = now, now
		st.users[stored.ID] = stored
		created = copyUser(stored)
		return nil
	})
	return created, err
}

func (r memUsers) find(match func(*model.User) bool) (*model.User, error) {
	var found *model.User
	r.read(func(st *memState) {
		for _, u := range st.users {
			if match(u) {
				found = copyUser(u)
				return
			}
		}
	})
	if found == nil {
		return nil, repository.ErrUserNotFound
	}
	return found, nil
}

func (r memUsers) GetByID(_ context.Context, id int64) (*model.User, error) {
	return r.find(func(u *model.User) bool { return u.ID == id })
}

func (r memUsers) GetByTelegramID(_ context.Context, telegramID int64) (*model.User, error) {
	return r.find(func(u *model.User) bool { return u.TelegramID == telegramID })
}

func (r memUsers) GetByReferralCode(_ context.Context, code string) (*model.User, error) {
	return r.find(func(u *model.User) bool { return u.ReferralCode == code })
}

func (r memUsers) GetForUpdate(ctx context.Context, id int64) (*model.User, error) {
	return r.GetByID(ctx, id)
}

func (r memUsers) ReferralCodeExists(_ context.Context, code string) (bool, error) {
	_, err := r.find(func(u *model.User) bool { return u.ReferralCode == code })
	return err == nil, nil
}

func (r memUsers) Save(_ context.Context, u *model.User) error {
	return r.write(func(st *memState) error {
		stored, ok := st.users[u.ID]
		if !ok || stored.Version != u.Version {
			return repository.ErrVersionConflict
		}
		u.Version++
		u.UpdatedAt = time.Now()
		st.users[u.ID] = copyUser(u)
		return nil
	})
}

func (r memUsers) UpdateProfile(_ context.Context, id int64, p model.Profile) error {
	return r.write(func(st *memState) error {
		u, ok := st.users[id]
		if !ok {
			return repository.ErrUserNotFound
		}
		u.Username, u.FirstName, u.LastName, u.PhotoURL = p.Username, p.FirstName, p.LastName, p.PhotoURL
		return nil
	})
}

func (r memUsers) sorted(keep func(*model.User) bool, less func(a, b *model.User) bool) []*model.User {
	var out []*model.User
	r.read(func(st *memState) {
		for _, u := range st.users {
			if keep(u) {
				out = append(out, copyUser(u))
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

func (r memUsers) ListReferrals(_ context.Context, referrerID int64) ([]*model.User, error) {
	return r.sorted(
		func(u *model.User) bool { return u.ReferrerID != nil && *u.ReferrerID == referrerID },
		func(a, b *model.User) bool { return a.ID < b.ID },
	), nil
}

func (r memUsers) Top(_ context.Context, limit int) ([]*model.User, error) {
	all := r.sorted(
		func(*model.User) bool { return true },
		func(a, b *model.User) bool {
			if a.Coins != b.Coins {
				return a.Coins > b.Coins
			}
			return a.ID < b.ID
		},
	)
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (r memUsers) CountWithMoreCoins(_ context.Context, coins int64) (int, error) {
	return len(r.sorted(
		func(u *model.User) bool { return u.Coins > coins },
		func(a, b *model.User) bool { return a.ID < b.ID },
	)), nil
}

func (r memUsers) Count(_ context.Context) (int, error) {
	n := 0
	r.read(func(st *memState) { n = len(st.users) })
	return n, nil
}

func (r memUsers) ListIDs(_ context.Context) ([]int64, error) {
	var ids []int64
	for _, u := range r.sorted(func(*model.User) bool { return true }, func(a, b *model.User) bool { return a.ID < b.ID }) {
		ids = append(ids, u.ID)
	}
	return ids, nil
}

type memLedger struct{ *memRepos }

func (r memLedger) Append(_ context.Context, tx *model.Transaction) (*model.Transaction, error) {
	var created model.Transaction
	err := r.write(func(st *memState) error {
		created = *tx
		created.ID = st.next()
		created.CreatedAt = time.Now()
		if created.Status == "" {
			created.Status = model.TxStatusCompleted
		}
		stored := created
		st.ledger = append(st.ledger, &stored)
		return nil
	})
	return &created, err
}

func (r memLedger) GetForUpdate(_ context.Context, id int64) (*model.Transaction, error) {
	var found *model.Transaction
	r.read(func(st *memState) {
		for _, e := range st.ledger {
			if e.ID == id {
				cp := *e
				found = &cp
			}
		}
	})
	if found == nil {
		return nil, repository.ErrTransactionNotFound
	}
	return found, nil
}

func (r memLedger) UpdateStatus(_ context.Context, id int64, status string) error {
	return r.write(func(st *memState) error {
		for _, e := range st.ledger {
			if e.ID == id {
				e.Status = status
				return nil
			}
		}
		return repository.ErrTransactionNotFound
	})
}

func (r memLedger) filter(keep func(*model.Transaction) bool) []*model.Transaction {
	var out []*model.Transaction
	r.read(func(st *memState) {
		for _, e := range st.ledger {
			if keep(e) {
				cp := *e
				out = append(out, &cp)
			}
		}
	})
	return out
}

func (r memLedger) ListByUser(_ context.Context, userID int64, limit int) ([]*model.Transaction, error) {
	out := r.filter(func(e *model.Transaction) bool { return e.UserID == userID })
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r memLedger) ListByTypeAndStatus(_ context.Context, txType, status string, limit int) ([]*model.Transaction, error) {
	out := r.filter(func(e *model.Transaction) bool { return e.Type == txType && e.Status == status })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func sum(entries []*model.Transaction) int64 {
	var total int64
	for _, e := range entries {
		total += e.Amount
	}
	return total
}

func (r memLedger) SumByUser(_ context.Context, userID int64) (int64, error) {
	return sum(r.filter(func(e *model.Transaction) bool { return e.UserID == userID })), nil
}

func (r memLedger) SumByUserAndType(_ context.Context, userID int64, txType string) (int64, error) {
	return sum(r.filter(func(e *model.Transaction) bool { return e.UserID == userID && e.Type == txType })), nil
}

func (r memLedger) SumByUserTypeAndStatus(_ context.Context, userID int64, txType, status string) (int64, error) {
	return sum(r.filter(func(e *model.Transaction) bool {
		return e.UserID == userID && e.Type == txType && e.Status == status
	})), nil
}

type memTasks struct{ *memRepos }

func (r memTasks) Create(_ context.Context, t *model.Task) (*model.Task, error) {
	cp := *t
	err := r.write(func(st *memState) error {
		cp.ID = st.next()
		cp.CreatedAt = time.Now()
		stored := cp
		st.tasks[cp.ID] = &stored
		return nil
	})
	return &cp, err
}

func (r memTasks) Update(_ context.Context, t *model.Task) (*model.Task, error) {
	cp := *t
	err := r.write(func(st *memState) error {
		old, ok := st.tasks[t.ID]
		if !ok {
			return repository.ErrTaskNotFound
		}
		cp.CreatedAt = old.CreatedAt
		stored := cp
		st.tasks[t.ID] = &stored
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &cp, nil
}

func (r memTasks) Get(_ context.Context, id int64) (*model.Task, error) {
	var found *model.Task
	r.read(func(st *memState) {
		if t, ok := st.tasks[id]; ok {
			cp := *t
			found = &cp
		}
	})
	if found == nil {
		return nil, repository.ErrTaskNotFound
	}
	return found, nil
}

func (r memTasks) List(_ context.Context, activeOnly bool) ([]*model.Task, error) {
	var out []*model.Task
	r.read(func(st *memState) {
		for _, t := range st.tasks {
			if t.IsActive || !activeOnly {
				cp := *t
				out = append(out, &cp)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r memTasks) GetProgress(_ context.Context, userID, taskID int64) (*model.UserTask, error) {
	var found *model.UserTask
	r.read(func(st *memState) {
		if ut, ok := st.userTasks[pairKey{userID, taskID}]; ok {
			cp := *ut
			found = &cp
		}
	})
	if found == nil {
		return nil, repository.ErrProgressNotFound
	}
	return found, nil
}

func (r memTasks) UpsertProgress(_ context.Context, ut *model.UserTask) (*model.UserTask, error) {
	cp := *ut
	err := r.write(func(st *memState) error {
		key := pairKey{ut.UserID, ut.TaskID}
		if old, ok := st.userTasks[key]; ok {
			cp.ID = old.ID
		} else {
			cp.ID = st.next()
		}
		cp.UpdatedAt = time.Now()
		stored := cp
		st.userTasks[key] = &stored
		return nil
	})
	return &cp, err
}

func (r memTasks) ListProgress(_ context.Context, userID int64) ([]*model.UserTask, error) {
	var out []*model.UserTask
	r.read(func(st *memState) {
		for k, ut := range st.userTasks {
			if k[0] == userID {
				cp := *ut
				out = append(out, &cp)
			}
		}
	})
	return out, nil
}

type memBadges struct{ *memRepos }

func (r memBadges) Create(_ context.Context, b *model.Badge) (*model.Badge, error) {
	cp := *b
	err := r.write(func(st *memState) error {
		cp.ID = st.next()
		cp.CreatedAt = time.Now()
		cp.UpdatedAt = cp.CreatedAt
		stored := cp
		st.badges[cp.ID] = &stored
		return nil
	})
	return &cp, err
}

func (r memBadges) Update(_ context.Context, b *model.Badge) (*model.Badge, error) {
	cp := *b
	err := r.write(func(st *memState) error {
		old, ok := st.badges[b.ID]
		if !ok {
			return repository.ErrBadgeNotFound
		}
		cp.CreatedAt = old.CreatedAt
		cp.UpdatedAt = time.Now()
		stored := cp
		st.badges[b.ID] = &stored
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &cp, nil
}

func (r memBadges) Get(_ context.Context, id int64) (*model.Badge, error) {
	var found *model.Badge
	r.read(func(st *memState) {
		if b, ok := st.badges[id]; ok {
			cp := *b
			found = &cp
		}
	})
	if found == nil {
		return nil, repository.ErrBadgeNotFound
	}
	return found, nil
}

func (r memBadges) List(_ context.Context, activeOnly bool) ([]*model.Badge, error) {
	var out []*model.Badge
	r.read(func(st *memState) {
		for _, b := range st.badges {
			if b.IsActive || !activeOnly {
				cp := *b
				out = append(out, &cp)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r memBadges) GetProgress(_ context.Context, userID, badgeID int64) (*model.UserBadge, error) {
	var found *model.UserBadge
	r.read(func(st *memState) {
		if ub, ok := st.userBadges[pairKey{userID, badgeID}]; ok {
			cp := *ub
			found = &cp
		}
	})
	if found == nil {
		return nil, repository.ErrProgressNotFound
	}
	return found, nil
}

func (r memBadges) UpsertProgress(_ context.Context, ub *model.UserBadge) (*model.UserBadge, error) {
	cp := *ub
	err := r.write(func(st *memState) error {
		key := pairKey{ub.UserID, ub.BadgeID}
		if old, ok := st.userBadges[key]; ok {
			cp.ID = old.ID
		} else {
			cp.ID = st.next()
		}
		cp.UpdatedAt = time.Now()
		stored := cp
		st.userBadges[key] = &stored
		return nil
	})
	return &cp, err
}

func (r memBadges) ListProgress(_ context.Context, userID int64) ([]*model.UserBadge, error) {
	var out []*model.UserBadge
	r.read(func(st *memState) {
		for k, ub := range st.userBadges {
			if k[0] == userID {
				cp := *ub
				out = append(out, &cp)
			}
		}
	})
	return out, nil
}

func (r memBadges) CountFeatured(_ context.Context, userID int64) (int, error) {
	n := 0
	r.read(func(st *memState) {
		for k, ub := range st.userBadges {
			if k[0] == userID && ub.Featured {
				n++
			}
		}
	})
	return n, nil
}

func (r memBadges) Stats(_ context.Context) (*model.BadgeStats, error) {
	stats := &model.BadgeStats{ByCategory: map[string]int{}, ByRarity: map[string]int{}}
	r.read(func(st *memState) {
		for _, b := range st.badges {
			stats.TotalBadges++
			if b.IsActive {
				stats.ActiveBadges++
			}
			stats.ByCategory[b.Category]++
			stats.ByRarity[b.Rarity]++
		}
		for _, ub := range st.userBadges {
			if ub.Earned {
				stats.TotalEarned++
				if !ub.RewardClaimed {
					stats.UnclaimedCount++
				}
			}
			if ub.Featured {
				stats.TotalFeatured++
			}
		}
	})
	return stats, nil
}

type memSocial struct{ *memRepos }

func (r memSocial) Create(_ context.Context, l *model.SocialLink) (*model.SocialLink, error) {
	cp := *l
	err := r.write(func(st *memState) error {
		cp.ID = st.next()
		cp.CreatedAt = time.Now()
		stored := cp
		st.links[cp.ID] = &stored
		return nil
	})
	return &cp, err
}

func (r memSocial) Update(_ context.Context, l *model.SocialLink) (*model.SocialLink, error) {
	cp := *l
	err := r.write(func(st *memState) error {
		old, ok := st.links[l.ID]
		if !ok {
			return repository.ErrSocialLinkNotFound
		}
		cp.CreatedAt = old.CreatedAt
		stored := cp
		st.links[l.ID] = &stored
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &cp, nil
}

func (r memSocial) Get(_ context.Context, id int64) (*model.SocialLink, error) {
	var found *model.SocialLink
	r.read(func(st *memState) {
		if l, ok := st.links[id]; ok {
			cp := *l
			found = &cp
		}
	})
	if found == nil {
		return nil, repository.ErrSocialLinkNotFound
	}
	return found, nil
}

func (r memSocial) List(_ context.Context, activeOnly bool) ([]*model.SocialLink, error) {
	var out []*model.SocialLink
	r.read(func(st *memState) {
		for _, l := range st.links {
			if l.IsActive || !activeOnly {
				cp := *l
				out = append(out, &cp)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r memSocial) InsertClaim(_ context.Context, userID, linkID int64) error {
	return r.write(func(st *memState) error {
		key := pairKey{userID, linkID}
		if st.claims[key] {
			return repository.ErrAlreadyClaimed
		}
		st.claims[key] = true
		return nil
	})
}

func (r memSocial) ClaimedLinkIDs(_ context.Context, userID int64) ([]int64, error) {
	var ids []int64
	r.read(func(st *memState) {
		for k := range st.claims {
			if k[0] == userID {
				ids = append(ids, k[1])
			}
		}
	})
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

type memSettings struct{ *memRepos }

func (r memSettings) GetCoinSettings(_ context.Context) (*model.CoinSettings, error) {
	var found *model.CoinSettings
	r.read(func(st *memState) {
		if st.settings != nil {
			cp := *st.settings
			found = &cp
		}
	})
	if found == nil {
		return nil, repository.ErrSettingsNotFound
	}
	return found, nil
}

func (r memSettings) SaveCoinSettings(_ context.Context, s *model.CoinSettings) (*model.CoinSettings, error) {
	cp := *s
	err := r.write(func(st *memState) error {
		cp.ID = 1
		cp.UpdatedAt = time.Now()
		stored := cp
		st.settings = &stored
		return nil
	})
	return &cp, err
}
