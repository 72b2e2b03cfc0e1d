package users

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dmitrijs2005/blogkeeper/internal/common"
	"github.com/dmitrijs2005/blogkeeper/internal/server/models"
)

// MemoryRepository keeps users in process. It backs tests and the
// database-less development mode.
type MemoryRepository struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]*models.User
	now    func() time.Time

	counters map[string]int
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:     make(map[int64]*models.User),
		now:      time.Now,
		counters: make(map[string]int),
	}
}

func clone(u *models.User) *models.User {
	c := *u
	return &c
}

func (r *MemoryRepository) Create(_ context.Context, user *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.byID {
		if u.Email == user.Email || u.UserName == user.UserName {
			return nil, common.ErrorAlreadyExists
		}
	}

	r.nextID++
	now := r.now().UTC()
	user.ID = r.nextID
	user.CreatedAt = now
	user.UpdatedAt = now
	r.byID[user.ID] = clone(user)
	return user, nil
}

// live returns the stored (not copied) user if it exists and is not deleted.
func (r *MemoryRepository) live(id int64) (*models.User, error) {
	u, ok := r.byID[id]
	if !ok || u.IsDeleted {
		return nil, common.ErrorNotFound
	}
	return u, nil
}

func (r *MemoryRepository) GetByID(_ context.Context, id int64) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, err := r.live(id)
	if err != nil {
		return nil, err
	}
	return clone(u), nil
}

func (r *MemoryRepository) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.byID {
		if u.Email == email && !u.IsDeleted {
			return clone(u), nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *MemoryRepository) EmailTaken(_ context.Context, email string, exceptID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.byID {
		if u.Email == email && u.ID != exceptID {
			return true, nil
		}
	}
	return false, nil
}

func (r *MemoryRepository) UserNameTaken(_ context.Context, userName string, exceptID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.byID {
		if u.UserName == userName && u.ID != exceptID {
			return true, nil
		}
	}
	return false, nil
}

func (r *MemoryRepository) NextMonthOrdinal(_ context.Context, at time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := monthKey(at)
	r.counters[k]++
	return r.counters[k], nil
}

func (r *MemoryRepository) update(id int64, fn func(u *models.User)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, err := r.live(id)
	if err != nil {
		return err
	}
	fn(u)
	u.UpdatedAt = r.now().UTC()
	return nil
}

func (r *MemoryRepository) SetPublicID(_ context.Context, id int64, publicID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	for _, o := range r.byID {
		if o.ID != id && o.PublicID == publicID {
			return common.ErrorAlreadyExists
		}
	}
	u.PublicID = publicID
	return nil
}

func (r *MemoryRepository) SetOTP(_ context.Context, id int64, code string, exp time.Time) error {
	return r.update(id, func(u *models.User) {
		u.OTP = code
		u.OTPExp = exp
	})
}

func (r *MemoryRepository) ConsumeOTP(_ context.Context, id int64, code string, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, err := r.live(id)
	if err != nil {
		return false, nil
	}
	if u.OTP == "" || u.OTP != code || !u.OTPExp.After(now) {
		return false, nil
	}
	u.OTP = ""
	u.IsVerified = true
	u.UpdatedAt = r.now().UTC()
	return true, nil
}

func (r *MemoryRepository) UpdatePassword(_ context.Context, id int64, hash string) error {
	return r.update(id, func(u *models.User) {
		u.PasswordHash = hash
		u.OTPExp = time.Time{}
	})
}

func (r *MemoryRepository) Update(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, err := r.live(user.ID)
	if err != nil {
		return err
	}
	for _, other := range r.byID {
		if other.ID != user.ID && (other.Email == user.Email || other.UserName == user.UserName) {
			return common.ErrorAlreadyExists
		}
	}
	u.UserName = user.UserName
	u.Email = user.Email
	u.Role = user.Role
	u.IsVerified = user.IsVerified
	u.UpdatedAt = r.now().UTC()
	return nil
}

func (r *MemoryRepository) SetBanned(_ context.Context, id int64, banned bool) error {
	return r.update(id, func(u *models.User) { u.IsBanned = banned })
}

func (r *MemoryRepository) SoftDelete(_ context.Context, id int64) error {
	return r.update(id, func(u *models.User) { u.IsDeleted = true })
}

func (r *MemoryRepository) List(_ context.Context, deleted bool, limit, offset int) ([]*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var all []*models.User
	for _, u := range r.byID {
		if u.IsDeleted == deleted {
			all = append(all, clone(u))
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })

	if offset < 0 {
		offset = 0
	}
	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (r *MemoryRepository) Recover(_ context.Context, ids []int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for _, id := range ids {
		if u, ok := r.byID[id]; ok && u.IsDeleted {
			u.IsDeleted = false
			n++
		}
	}
	return n, nil
}

func (r *MemoryRepository) Purge(_ context.Context, ids []int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for _, id := range ids {
		if u, ok := r.byID[id]; ok && u.IsDeleted {
			delete(r.byID, id)
			n++
		}
	}
	return n, nil
}
