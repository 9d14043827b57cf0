// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Kanri Contributors

//go:build integration

package store_test

import (
	"time"

	"github.com/oklog/ulid/v2"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/kanri/kanri/internal/auth"
	authpg "github.com/kanri/kanri/internal/auth/postgres"
	projectpg "github.com/kanri/kanri/internal/project/postgres"
	"github.com/kanri/kanri/internal/store"
)

func createUser(repo *authpg.UserRepository, name, email string, activated bool) *auth.User {
	u, err := auth.NewUser(name, email, "$2a$04$digest")
	Expect(err).NotTo(HaveOccurred())
	u.Activated = activated
	Expect(repo.Create(env.ctx, u)).To(Succeed())
	return u
}

func insertProject(owner ulid.ULID, name string, startedAt time.Time, deleted bool) ulid.ULID {
	id := ulid.Make()
	var deletedAt *time.Time
	if deleted {
		now := time.Now()
		deletedAt = &now
	}
	_, err := env.pool.Exec(env.ctx, `
		INSERT INTO projects (id, name, user_id, budget, owner, status, started_at, completed_at, deleted_at)
		VALUES ($1, $2, $3, 1000, 'Ann', 1, $4, $5, $6)
	`, id.String(), name, owner.String(), startedAt, startedAt.Add(24*time.Hour), deletedAt)
	Expect(err).NotTo(HaveOccurred())
	return id
}

func insertMember(projectID, userID ulid.ULID, deleted bool) {
	var deletedAt *time.Time
	if deleted {
		now := time.Now()
		deletedAt = &now
	}
	_, err := env.pool.Exec(env.ctx, `
		INSERT INTO project_members (project_id, user_id, deleted_at) VALUES ($1, $2, $3)
	`, projectID.String(), userID.String(), deletedAt)
	Expect(err).NotTo(HaveOccurred())
}

func insertTask(projectID, userID ulid.ULID, name string, startedAt time.Time) ulid.ULID {
	id := ulid.Make()
	_, err := env.pool.Exec(env.ctx, `
		INSERT INTO tasks (id, name, user_id, project_id, in_charge, status, created_by, started_at, completed_at)
		VALUES ($1, $2, $3, $4, 'Ann', 0, 'Ann', $5, $6)
	`, id.String(), name, userID.String(), projectID.String(), startedAt, startedAt.Add(time.Hour))
	Expect(err).NotTo(HaveOccurred())
	return id
}

var _ = Describe("Migrations", func() {
	It("reports every embedded migration as applied", func() {
		m, err := store.NewMigrator(env.url)
		Expect(err).NotTo(HaveOccurred())
		defer func() { _ = m.Close() }()

		st, err := m.Status()
		Expect(err).NotTo(HaveOccurred())
		versions, err := store.MigrationVersions()
		Expect(err).NotTo(HaveOccurred())

		Expect(st.Dirty).To(BeFalse())
		Expect(st.Applied).To(Equal(versions))
		Expect(st.Pending).To(BeEmpty())
	})
})

var _ = Describe("UserRepository", func() {
	var repo *authpg.UserRepository

	BeforeEach(func() {
		env.truncate()
		repo = authpg.NewUserRepository(env.pool)
	})

	It("round-trips a user", func() {
		u := createUser(repo, "Ann", "ann@example.com", true)

		got, err := repo.GetByID(env.ctx, u.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Email).To(Equal("ann@example.com"))
		Expect(got.Activated).To(BeTrue())
		Expect(got.RefreshJTI).To(BeNil())
	})

	It("returns ErrNotFound for unknown ids", func() {
		_, err := repo.GetByID(env.ctx, ulid.Make())
		Expect(err).To(MatchError(auth.ErrNotFound))
	})

	It("finds only activated users by email", func() {
		createUser(repo, "Ann", "ann@example.com", false)
		_, err := repo.FindActiveByEmail(env.ctx, "ann@example.com")
		Expect(err).To(MatchError(auth.ErrNotFound))

		active := createUser(repo, "Ann Two", "ann@example.com", true)
		got, err := repo.FindActiveByEmail(env.ctx, "ann@example.com")
		Expect(err).NotTo(HaveOccurred())
		Expect(got.ID).To(Equal(active.ID))
	})

	It("enforces unique activated emails with the partial index", func() {
		createUser(repo, "Ann", "ann@example.com", true)
		inactive := createUser(repo, "Ann Two", "ann@example.com", false)

		conflict, err := repo.HasActivatedEmailConflict(env.ctx, inactive)
		Expect(err).NotTo(HaveOccurred())
		Expect(conflict).To(BeTrue())

		inactive.Activated = true
		Expect(repo.Update(env.ctx, inactive)).To(MatchError(auth.ErrDuplicateEmail))
	})

	It("persists and clears the refresh jti", func() {
		u := createUser(repo, "Ann", "ann@example.com", true)
		jti := "jti-1"
		Expect(repo.SetRefreshJTI(env.ctx, u.ID, &jti, time.Now())).To(Succeed())

		got, err := repo.GetByID(env.ctx, u.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.RefreshJTI).NotTo(BeNil())
		Expect(*got.RefreshJTI).To(Equal("jti-1"))

		Expect(repo.SetRefreshJTI(env.ctx, u.ID, nil, time.Now())).To(Succeed())
		again, err := repo.GetByID(env.ctx, u.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(again.RefreshJTI).To(BeNil())
	})

	It("keeps profile columns when the refresh jti changes", func() {
		u := createUser(repo, "Ann", "ann@example.com", true)
		stale, err := repo.GetByID(env.ctx, u.ID)
		Expect(err).NotTo(HaveOccurred())

		u.PasswordDigest = "changed-digest"
		Expect(repo.Update(env.ctx, u)).To(Succeed())
		jti := "jti-1"
		Expect(repo.SetRefreshJTI(env.ctx, stale.ID, &jti, time.Now())).To(Succeed())

		got, err := repo.GetByID(env.ctx, u.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.PasswordDigest).To(Equal("changed-digest"))

		stale.Name = "Ann B"
		Expect(repo.Update(env.ctx, stale)).To(Succeed())
		got, err = repo.GetByID(env.ctx, u.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.RefreshJTI).NotTo(BeNil(), "profile updates leave the session alone")
	})

	It("swaps the refresh jti only from the current value", func() {
		u := createUser(repo, "Ann", "ann@example.com", true)
		old := "old"
		Expect(repo.SetRefreshJTI(env.ctx, u.ID, &old, time.Now())).To(Succeed())

		swapped, err := repo.SwapRefreshJTI(env.ctx, u.ID, "old", "new", time.Now())
		Expect(err).NotTo(HaveOccurred())
		Expect(swapped).To(BeTrue())

		swapped, err = repo.SwapRefreshJTI(env.ctx, u.ID, "old", "replayed", time.Now())
		Expect(err).NotTo(HaveOccurred())
		Expect(swapped).To(BeFalse())

		got, err := repo.GetByID(env.ctx, u.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(*got.RefreshJTI).To(Equal("new"))
	})
})

var _ = Describe("ProjectRepository", func() {
	var (
		users    *authpg.UserRepository
		projects *projectpg.Repository
		owner    *auth.User
		member   *auth.User
		stranger *auth.User
		base     time.Time
	)

	BeforeEach(func() {
		env.truncate()
		users = authpg.NewUserRepository(env.pool)
		projects = projectpg.NewRepository(env.pool)
		owner = createUser(users, "Owner", "owner@example.com", true)
		member = createUser(users, "Member", "member@example.com", true)
		stranger = createUser(users, "Stranger", "stranger@example.com", true)
		base = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	})

	It("lists owned and member projects ordered by start time", func() {
		later := insertProject(owner.ID, "Later", base.Add(48*time.Hour), false)
		earlier := insertProject(owner.ID, "Earlier", base, false)
		insertProject(owner.ID, "Gone", base, true)
		insertMember(earlier, member.ID, false)
		insertMember(later, member.ID, true)

		got, err := projects.ListProjectsForUser(env.ctx, owner.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(got).To(HaveLen(2))
		Expect(got[0].ID).To(Equal(earlier))
		Expect(got[1].ID).To(Equal(later))

		got, err = projects.ListProjectsForUser(env.ctx, member.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(got).To(HaveLen(1))
		Expect(got[0].Name).To(Equal("Earlier"))

		got, err = projects.ListProjectsForUser(env.ctx, stranger.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(got).To(BeEmpty())
	})

	It("lists tasks of visible projects only", func() {
		visible := insertProject(owner.ID, "Visible", base, false)
		hidden := insertProject(stranger.ID, "Hidden", base, false)
		insertMember(visible, member.ID, false)
		want := insertTask(visible, owner.ID, "Design", base)
		insertTask(hidden, stranger.ID, "Secret", base)

		got, err := projects.ListTasksForUser(env.ctx, member.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(got).To(HaveLen(1))
		Expect(got[0].ID).To(Equal(want))
		Expect(got[0].ProjectID).To(Equal(visible))
	})
})
