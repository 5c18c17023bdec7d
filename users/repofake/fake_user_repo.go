package repofake

import (
	"sort"
	"sync"

	"github.com/jrsteele09/go-course-client/users"
	"github.com/pkg/errors"
)

var _ users.Repo = (*FakeUserRepo)(nil)

type FakeUserRepo struct {
	lock  sync.RWMutex
	users map[string]*users.User
}

func NewFakeUserRepo() *FakeUserRepo {
	return &FakeUserRepo{
		users: make(map[string]*users.User),
	}
}

func (ur *FakeUserRepo) GetByID(id string) (*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	user, ok := ur.users[id]
	if !ok {
		return nil, errors.New("not found")
	}
	copied := *user
	return &copied, nil
}

func (ur *FakeUserRepo) Upsert(user *users.User) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	copied := *user
	ur.users[user.ID] = &copied
	return nil
}

func (ur *FakeUserRepo) List(offset, limit int) ([]*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	ids := make([]string, 0, len(ur.users))
	for id := range ur.users {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	if offset >= len(ids) {
		return nil, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(ids) {
		end = len(ids)
	}

	list := make([]*users.User, 0, end-offset)
	for _, id := range ids[offset:end] {
		copied := *ur.users[id]
		list = append(list, &copied)
	}
	return list, nil
}

func (ur *FakeUserRepo) SetBlocked(id string, blocked bool) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	user, ok := ur.users[id]
	if !ok {
		return errors.New("not found")
	}
	user.Blocked = blocked
	return nil
}

func (ur *FakeUserRepo) Delete(id string) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	delete(ur.users, id)
	return nil
}
