// internal/resolver/resolver.go
package resolver

import (
	"context"
	"log/slog"

	"github-ai-attribution/internal/database"
	custom_errors "github-ai-attribution/internal/errors"
	"github-ai-attribution/internal/model"
)

// AccountLookup resolves a platform installation to its account.
type AccountLookup interface {
	GetInstallation(ctx context.Context, installationID int64) (model.Account, error)
}

// Request asks to link a platform installation to a tenant. A zero
// OrganizationID selects the personal flow.
type Request struct {
	UserID               string
	GithubInstallationID int64
	OrganizationID       int64
}

// Resolver maps platform installations onto tenants.
type Resolver struct {
	store    database.Store
	accounts AccountLookup
	logger   *slog.Logger
}

// New creates a new Resolver instance.
func New(store database.Store, accounts AccountLookup, logger *slog.Logger) *Resolver {
	return &Resolver{store: store, accounts: accounts, logger: logger}
}

// Resolve links req.GithubInstallationID to the requesting tenant and returns
// the internal installation it now maps to.
func (r *Resolver) Resolve(ctx context.Context, req Request) (model.InstallationRef, error) {
	if req.UserID == "" {
		return model.InstallationRef{}, custom_errors.E(custom_errors.Unauthorized, "resolve installation", nil)
	}
	if req.GithubInstallationID <= 0 {
		return model.InstallationRef{}, custom_errors.Ef(custom_errors.Invalid, "resolve installation", "invalid installation id %d", req.GithubInstallationID)
	}
	if req.OrganizationID != 0 {
		return r.resolveOrganization(ctx, req)
	}
	return r.resolvePersonal(ctx, req)
}

// resolvePersonal enforces that a platform installation or account taken by
// one user is never handed to another.
func (r *Resolver) resolvePersonal(ctx context.Context, req Request) (model.InstallationRef, error) {
	const op = "resolve personal installation"
	logger := r.logger.With("user_id", req.UserID, "installation_id", req.GithubInstallationID)

	account, err := r.accounts.GetInstallation(ctx, req.GithubInstallationID)
	if err != nil {
		return model.InstallationRef{}, err
	}

	var ref model.InstallationRef
	err = r.store.InTx(ctx, func(q database.Querier) error {
		if inst, err := q.GetInstallationByGithubID(ctx, req.GithubInstallationID); err == nil {
			if inst.UserID != req.UserID {
				return custom_errors.Ef(custom_errors.Conflict, op, "installation %d is linked to another user", req.GithubInstallationID)
			}
		} else if !database.IsNotFound(err) {
			return database.Classify(op, err)
		}

		if inst, err := q.GetInstallationByAccount(ctx, account.ID); err == nil {
			if inst.UserID != req.UserID {
				return custom_errors.Ef(custom_errors.Conflict, op, "account %s is linked to another user", account.Login)
			}
		} else if !database.IsNotFound(err) {
			return database.Classify(op, err)
		}

		if err := checkNotHeldByOrg(ctx, q, op, req.GithubInstallationID, account); err != nil {
			return err
		}

		current, err := q.GetInstallationByUser(ctx, req.UserID)
		switch {
		case err == nil && current.GithubInstallationID == req.GithubInstallationID && current.AccountID == account.ID:
			ref = personalRef(current)
			return nil
		case err == nil:
			logger.Info("Replacing user's previous installation", "previous_installation_id", current.GithubInstallationID)
			if err := q.DeleteInstallation(ctx, current.ID); err != nil {
				return database.Classify(op, err)
			}
		case !database.IsNotFound(err):
			return database.Classify(op, err)
		}

		created, err := q.CreateInstallation(ctx, database.CreateInstallationParams{
			GithubInstallationID: req.GithubInstallationID,
			UserID:               req.UserID,
			AccountID:            account.ID,
			AccountLogin:         account.Login,
		})
		if err != nil {
			return database.Classify(op, err)
		}
		ref = personalRef(created)
		return nil
	})
	if err != nil {
		return model.InstallationRef{}, err
	}
	logger.Info("Linked personal installation", "account", account.Login, "id", ref.ID)
	return ref, nil
}

func checkNotHeldByOrg(ctx context.Context, q database.Querier, op string, githubID int64, account model.Account) error {
	if _, err := q.GetOrgInstallationByGithubID(ctx, githubID); err == nil {
		return custom_errors.Ef(custom_errors.Conflict, op, "installation %d is linked to an organization", githubID)
	} else if !database.IsNotFound(err) {
		return database.Classify(op, err)
	}
	if _, err := q.GetOrgInstallationByAccount(ctx, account.ID); err == nil {
		return custom_errors.Ef(custom_errors.Conflict, op, "account %s is linked to an organization", account.Login)
	} else if !database.IsNotFound(err) {
		return database.Classify(op, err)
	}
	return nil
}

// resolveOrganization links the installation to an organization on behalf of
// one of its owners or admins. The organization's previous link is replaced.
// An installation or account held by another organization, or linked
// personally by another user, is a conflict. The caller's own personal link
// of the same installation is migrated with its repositories.
func (r *Resolver) resolveOrganization(ctx context.Context, req Request) (model.InstallationRef, error) {
	const op = "resolve organization installation"
	logger := r.logger.With("user_id", req.UserID, "organization_id", req.OrganizationID, "installation_id", req.GithubInstallationID)

	if err := r.RequireAdmin(ctx, req.UserID, req.OrganizationID); err != nil {
		return model.InstallationRef{}, err
	}

	account, err := r.accounts.GetInstallation(ctx, req.GithubInstallationID)
	if err != nil {
		return model.InstallationRef{}, err
	}

	var ref model.InstallationRef
	err = r.store.InTx(ctx, func(q database.Querier) error {
		if err := checkNotHeldByOtherOrg(ctx, q, op, req.OrganizationID, req.GithubInstallationID, account); err != nil {
			return err
		}

		personal, err := findPersonal(ctx, q, req.GithubInstallationID, account)
		if err != nil {
			return database.Classify(op, err)
		}
		if personal != nil && personal.UserID != req.UserID {
			return custom_errors.Ef(custom_errors.Conflict, op, "installation %d is linked to another user", req.GithubInstallationID)
		}

		if current, err := q.GetOrgInstallationByOrg(ctx, req.OrganizationID); err == nil {
			if current.GithubInstallationID == req.GithubInstallationID && current.AccountID == account.ID {
				ref = orgRef(current)
				return nil
			}
			logger.Info("Replacing organization's previous installation", "previous_installation_id", current.GithubInstallationID)
			if err := q.DeleteOrgInstallation(ctx, current.ID); err != nil {
				return database.Classify(op, err)
			}
		} else if !database.IsNotFound(err) {
			return database.Classify(op, err)
		}

		created, err := q.CreateOrgInstallation(ctx, database.CreateOrgInstallationParams{
			GithubInstallationID: req.GithubInstallationID,
			OrganizationID:       req.OrganizationID,
			AccountID:            account.ID,
			AccountLogin:         account.Login,
			ConnectedBy:          req.UserID,
		})
		if err != nil {
			return database.Classify(op, err)
		}

		if personal != nil {
			moved, err := q.MoveRepositoriesToOrgInstallation(ctx, database.MoveRepositoriesToOrgInstallationParams{
				InstallationID:    personal.ID,
				OrgInstallationID: created.ID,
			})
			if err != nil {
				return database.Classify(op, err)
			}
			if err := q.DeleteInstallation(ctx, personal.ID); err != nil {
				return database.Classify(op, err)
			}
			logger.Info("Migrated personal installation to organization", "repositories", moved)
		}

		ref = orgRef(created)
		return nil
	})
	if err != nil {
		return model.InstallationRef{}, err
	}
	logger.Info("Linked organization installation", "account", account.Login, "id", ref.ID)
	return ref, nil
}

func checkNotHeldByOtherOrg(ctx context.Context, q database.Querier, op string, orgID, githubID int64, account model.Account) error {
	if other, err := q.GetOrgInstallationByGithubID(ctx, githubID); err == nil {
		if other.OrganizationID != orgID {
			return custom_errors.Ef(custom_errors.Conflict, op, "installation %d is linked to another organization", githubID)
		}
	} else if !database.IsNotFound(err) {
		return database.Classify(op, err)
	}
	if other, err := q.GetOrgInstallationByAccount(ctx, account.ID); err == nil {
		if other.OrganizationID != orgID {
			return custom_errors.Ef(custom_errors.Conflict, op, "account %s is linked to another organization", account.Login)
		}
	} else if !database.IsNotFound(err) {
		return database.Classify(op, err)
	}
	return nil
}

func findPersonal(ctx context.Context, q database.Querier, githubID int64, account model.Account) (*database.Installation, error) {
	inst, err := q.GetInstallationByGithubID(ctx, githubID)
	if err == nil {
		return &inst, nil
	}
	if !database.IsNotFound(err) {
		return nil, err
	}
	inst, err = q.GetInstallationByAccount(ctx, account.ID)
	if err == nil {
		return &inst, nil
	}
	if database.IsNotFound(err) {
		return nil, nil
	}
	return nil, err
}

// RequireAdmin fails with Forbidden unless userID is an owner or admin of organizationID.
func (r *Resolver) RequireAdmin(ctx context.Context, userID string, organizationID int64) error {
	const op = "check organization role"
	member, err := r.store.GetOrganizationMember(ctx, database.GetOrganizationMemberParams{
		OrganizationID: organizationID,
		UserID:         userID,
	})
	if database.IsNotFound(err) {
		return custom_errors.Ef(custom_errors.Forbidden, op, "user is not a member of organization %d", organizationID)
	}
	if err != nil {
		return database.Classify(op, err)
	}
	if member.Role != "owner" && member.Role != "admin" {
		return custom_errors.Ef(custom_errors.Forbidden, op, "role %q cannot manage organization %d", member.Role, organizationID)
	}
	return nil
}

// ByGithubInstallation finds the internal installation, personal first, that
// a webhook's installation id refers to.
func (r *Resolver) ByGithubInstallation(ctx context.Context, githubID int64) (model.InstallationRef, error) {
	const op = "lookup installation"
	inst, err := r.store.GetInstallationByGithubID(ctx, githubID)
	if err == nil {
		return personalRef(inst), nil
	}
	if !database.IsNotFound(err) {
		return model.InstallationRef{}, database.Classify(op, err)
	}
	org, err := r.store.GetOrgInstallationByGithubID(ctx, githubID)
	if err == nil {
		return orgRef(org), nil
	}
	if database.IsNotFound(err) {
		return model.InstallationRef{}, custom_errors.Ef(custom_errors.NotFound, op, "installation %d is not linked", githubID)
	}
	return model.InstallationRef{}, database.Classify(op, err)
}

// ForUser lists the installations userID may sync: their personal one and
// those of organizations they administer.
func (r *Resolver) ForUser(ctx context.Context, userID string) ([]model.InstallationRef, error) {
	const op = "list user installations"
	var refs []model.InstallationRef

	inst, err := r.store.GetInstallationByUser(ctx, userID)
	switch {
	case err == nil:
		refs = append(refs, personalRef(inst))
	case !database.IsNotFound(err):
		return nil, database.Classify(op, err)
	}

	orgs, err := r.store.ListAdministeredOrgInstallations(ctx, userID)
	if err != nil {
		return nil, database.Classify(op, err)
	}
	for _, o := range orgs {
		refs = append(refs, orgRef(o))
	}
	return refs, nil
}

func personalRef(i database.Installation) model.InstallationRef {
	return model.InstallationRef{Kind: model.OwnerPersonal, ID: i.ID, GithubInstallationID: i.GithubInstallationID}
}

func orgRef(o database.OrgInstallation) model.InstallationRef {
	return model.InstallationRef{Kind: model.OwnerOrganization, ID: o.ID, GithubInstallationID: o.GithubInstallationID}
}
