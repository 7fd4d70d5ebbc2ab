package users

import (
	"context"
	"fmt"

	"github.com/Dinesh-Das/QR-sub002/internal/rbac"
)

// recipientStore is the slice of the repository the directory needs.
type recipientStore interface {
	RecipientsByRoleType(ctx context.Context, roleType, plantCode string) ([]string, error)
}

// teamRoles maps notification audience names onto the role taxonomy.
var teamRoles = map[string]rbac.RoleType{
	"JVC":   rbac.RoleJVC,
	"CQS":   rbac.RoleCQS,
	"TECH":  rbac.RoleTech,
	"PLANT": rbac.RolePlant,
}

// Directory resolves a team audience to concrete usernames. It backs
// the notification fan-out job.
type Directory struct {
	store recipientStore
}

func NewDirectory(store recipientStore) *Directory {
	return &Directory{store: store}
}

// Recipients returns the active accounts behind a team. plantCode, when
// set, narrows the audience to accounts assigned that plant.
func (d *Directory) Recipients(ctx context.Context, team, plantCode string) ([]string, error) {
	roleType, ok := teamRoles[team]
	if !ok {
		return nil, fmt.Errorf("unknown team %q", team)
	}
	return d.store.RecipientsByRoleType(ctx, string(roleType), plantCode)
}
