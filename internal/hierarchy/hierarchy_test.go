package hierarchy_test

import (
	"context"
	"log/slog"
	"os"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/frahmantamala/timetrack/internal/auth"
	memberDatamodel "github.com/frahmantamala/timetrack/internal/core/datamodel/membership"
	projectDatamodel "github.com/frahmantamala/timetrack/internal/core/datamodel/project"
	userDatamodel "github.com/frahmantamala/timetrack/internal/core/datamodel/user"
	"github.com/frahmantamala/timetrack/internal/core/events"
	"github.com/frahmantamala/timetrack/internal/hierarchy"
	hierarchyRepo "github.com/frahmantamala/timetrack/internal/hierarchy/postgres"
	"github.com/frahmantamala/timetrack/internal/membership"
	memberRepo "github.com/frahmantamala/timetrack/internal/membership/postgres"
	"github.com/frahmantamala/timetrack/internal/project"
	projectRepo "github.com/frahmantamala/timetrack/internal/project/postgres"
)

func TestHierarchy(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Hierarchy Suite")
}

var _ = Describe("BuildDescription", func() {
	It("sorts, dedupes and drops blanks", func() {
		Expect(hierarchy.BuildDescription([]string{"Bob", " Alice ", "", "Bob"})).To(Equal("Alice, Bob"))
	})

	It("is empty without managers", func() {
		Expect(hierarchy.BuildDescription(nil)).To(BeEmpty())
	})
})

// fixture wires the real repositories over an in-memory sqlite database.
type fixture struct {
	db          *gorm.DB
	members     *memberRepo.MembershipRepository
	projects    *project.Service
	sync        *hierarchy.Synchronizer
	reconciler  *hierarchy.Reconciler
	memberships *membership.Service
	admin       *auth.Actor
	alice       userDatamodel.User
	bob         userDatamodel.User
	carol       userDatamodel.User
}

func newFixture(opts hierarchy.Options) *fixture {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	Expect(err).NotTo(HaveOccurred())
	sqlDB, err := db.DB()
	Expect(err).NotTo(HaveOccurred())
	sqlDB.SetMaxOpenConns(1)

	Expect(db.AutoMigrate(
		&userDatamodel.User{},
		&projectDatamodel.Project{},
		&memberDatamodel.Role{},
		&memberDatamodel.Member{},
		&memberDatamodel.MemberRole{},
	)).To(Succeed())

	Expect(db.Create(&[]memberDatamodel.Role{
		{ID: auth.RoleEmployee, Name: "Employee"},
		{ID: auth.RoleManager, Name: "Manager"},
		{ID: auth.RoleChildLeadership, Name: "ChildLeadership"},
	}).Error).To(Succeed())

	f := &fixture{db: db, admin: &auth.Actor{ID: 999, Login: "admin", Admin: true}}
	f.alice = userDatamodel.User{Login: "alice", Firstname: "Alice", PasswordHash: "x", Status: userDatamodel.StatusActive}
	f.bob = userDatamodel.User{Login: "bob", Firstname: "Bob", PasswordHash: "x", Status: userDatamodel.StatusActive}
	Expect(db.Create(&f.alice).Error).To(Succeed())
	Expect(db.Create(&f.bob).Error).To(Succeed())
	f.carol = userDatamodel.User{Login: "carol", Firstname: "Carol", PasswordHash: "x", Status: userDatamodel.StatusActive}
	Expect(db.Create(&f.carol).Error).To(Succeed())

	lg := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	f.members = memberRepo.NewMembershipRepository(db)
	bus := events.NewEventBus(lg)
	f.projects = project.NewService(projectRepo.NewProjectRepository(db), bus, lg)
	f.sync = hierarchy.NewSynchronizer(f.members, f.projects, hierarchyRepo.NewDescriptionRepository(db), opts, lg)
	f.reconciler = hierarchy.NewReconciler(f.sync, f.members, f.projects, 2, lg)

	hierarchy.NewSubscriber(f.sync, f.members, lg).Register(bus)
	f.memberships = membership.NewService(f.members, bus, lg)
	return f
}

func (f *fixture) close() {
	if sqlDB, err := f.db.DB(); err == nil {
		sqlDB.Close()
	}
}

func (f *fixture) project(identifier string, parentID *int64) int64 {
	p := projectDatamodel.Project{Identifier: identifier, Name: identifier, ParentID: parentID}
	Expect(f.db.Create(&p).Error).To(Succeed())
	return p.ID
}

func (f *fixture) roles(projectID, userID int64) []int64 {
	m, err := f.members.FindByProjectAndUser(context.Background(), projectID, userID)
	if err != nil {
		return nil
	}
	return m.RoleIDs
}

func (f *fixture) description(projectID int64) string {
	var p projectDatamodel.Project
	Expect(f.db.First(&p, projectID).Error).To(Succeed())
	return p.Description
}

var _ = Describe("Hierarchy synchronization", func() {
	var (
		f       *fixture
		ctx     context.Context
		a, b, c int64
		d       int64
	)

	// A -> B -> C -> D
	BeforeEach(func() {
		ctx = context.Background()
		f = newFixture(hierarchy.Options{})
		a = f.project("a", nil)
		b = f.project("b", &a)
		c = f.project("c", &b)
		d = f.project("d", &c)
	})

	AfterEach(func() {
		f.close()
	})

	It("grants Employee in the parent only and ChildLeadership in every descendant", func() {
		_, err := f.memberships.Upsert(ctx, f.admin, b, membership.UpsertMembershipDTO{UserID: f.alice.ID, RoleIDs: []int64{auth.RoleManager}})
		Expect(err).NotTo(HaveOccurred())

		Expect(f.roles(a, f.alice.ID)).To(ConsistOf(auth.RoleEmployee))
		Expect(f.roles(c, f.alice.ID)).To(ConsistOf(auth.RoleChildLeadership))
		Expect(f.roles(d, f.alice.ID)).To(ConsistOf(auth.RoleChildLeadership))
		Expect(f.roles(b, f.alice.ID)).To(ConsistOf(auth.RoleManager))
	})

	It("does not climb past the direct parent", func() {
		_, err := f.memberships.Upsert(ctx, f.admin, c, membership.UpsertMembershipDTO{UserID: f.alice.ID, RoleIDs: []int64{auth.RoleManager}})
		Expect(err).NotTo(HaveOccurred())

		Expect(f.roles(b, f.alice.ID)).To(ConsistOf(auth.RoleEmployee))
		Expect(f.roles(a, f.alice.ID)).To(BeEmpty())
	})

	It("is idempotent", func() {
		_, err := f.memberships.Upsert(ctx, f.admin, b, membership.UpsertMembershipDTO{UserID: f.alice.ID, RoleIDs: []int64{auth.RoleManager}})
		Expect(err).NotTo(HaveOccurred())

		m, err := f.members.FindByProjectAndUser(ctx, b, f.alice.ID)
		Expect(err).NotTo(HaveOccurred())

		res, err := f.sync.SyncHierarchyForManager(ctx, m)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Writes).To(BeZero())
		Expect(res.ParentGranted).To(BeFalse())
		Expect(res.DescendantsGranted).To(BeEmpty())
	})

	It("keeps existing roles of derived memberships", func() {
		_, err := f.memberships.Upsert(ctx, f.admin, a, membership.UpsertMembershipDTO{UserID: f.alice.ID, RoleIDs: []int64{auth.RoleManager}})
		Expect(err).NotTo(HaveOccurred())
		_, err = f.memberships.Upsert(ctx, f.admin, b, membership.UpsertMembershipDTO{UserID: f.alice.ID, RoleIDs: []int64{auth.RoleManager}})
		Expect(err).NotTo(HaveOccurred())

		Expect(f.roles(a, f.alice.ID)).To(ConsistOf(auth.RoleManager, auth.RoleEmployee))
		Expect(f.roles(b, f.alice.ID)).To(ConsistOf(auth.RoleManager, auth.RoleChildLeadership))
	})

	It("ignores members without the Manager role", func() {
		_, err := f.memberships.Upsert(ctx, f.admin, b, membership.UpsertMembershipDTO{UserID: f.alice.ID, RoleIDs: []int64{auth.RoleEmployee}})
		Expect(err).NotTo(HaveOccurred())

		Expect(f.roles(a, f.alice.ID)).To(BeEmpty())
		Expect(f.roles(c, f.alice.ID)).To(BeEmpty())
	})

	It("maintains the manager names as the project description", func() {
		_, err := f.memberships.Upsert(ctx, f.admin, b, membership.UpsertMembershipDTO{UserID: f.bob.ID, RoleIDs: []int64{auth.RoleManager}})
		Expect(err).NotTo(HaveOccurred())
		_, err = f.memberships.Upsert(ctx, f.admin, b, membership.UpsertMembershipDTO{UserID: f.alice.ID, RoleIDs: []int64{auth.RoleManager}})
		Expect(err).NotTo(HaveOccurred())
		_, err = f.memberships.Upsert(ctx, f.admin, b, membership.UpsertMembershipDTO{UserID: f.carol.ID, RoleIDs: []int64{auth.RoleEmployee}})
		Expect(err).NotTo(HaveOccurred())

		Expect(f.description(b)).To(Equal("Alice, Bob"))
		Expect(f.description(c)).To(BeEmpty())
	})

	It("extends ChildLeadership of managers above into a newly created project", func() {
		_, err := f.memberships.Upsert(ctx, f.admin, a, membership.UpsertMembershipDTO{UserID: f.alice.ID, RoleIDs: []int64{auth.RoleManager}})
		Expect(err).NotTo(HaveOccurred())
		_, err = f.memberships.Upsert(ctx, f.admin, c, membership.UpsertMembershipDTO{UserID: f.bob.ID, RoleIDs: []int64{auth.RoleManager}})
		Expect(err).NotTo(HaveOccurred())
		_, err = f.memberships.Upsert(ctx, f.admin, b, membership.UpsertMembershipDTO{UserID: f.carol.ID, RoleIDs: []int64{auth.RoleEmployee}})
		Expect(err).NotTo(HaveOccurred())

		child, err := f.projects.Create(ctx, f.admin, project.CreateProjectDTO{Identifier: "b-child", Name: "B child", ParentID: &b})
		Expect(err).NotTo(HaveOccurred())

		Expect(f.roles(child.ID, f.alice.ID)).To(ConsistOf(auth.RoleChildLeadership))
		Expect(f.roles(child.ID, f.bob.ID)).To(BeEmpty())
		Expect(f.roles(child.ID, f.carol.ID)).To(BeEmpty())
		Expect(f.description(child.ID)).To(BeEmpty())
	})

	It("does not retract derived roles when the Manager membership is destroyed", func() {
		m, err := f.memberships.Upsert(ctx, f.admin, b, membership.UpsertMembershipDTO{UserID: f.alice.ID, RoleIDs: []int64{auth.RoleManager}})
		Expect(err).NotTo(HaveOccurred())

		Expect(f.memberships.Destroy(ctx, f.admin, m.ID)).To(Succeed())

		Expect(f.roles(a, f.alice.ID)).To(ConsistOf(auth.RoleEmployee))
		Expect(f.roles(c, f.alice.ID)).To(ConsistOf(auth.RoleChildLeadership))
		Expect(f.description(b)).To(BeEmpty())
	})

	It("refreshes the description when the Manager role is removed", func() {
		m, err := f.memberships.Upsert(ctx, f.admin, b, membership.UpsertMembershipDTO{UserID: f.alice.ID, RoleIDs: []int64{auth.RoleManager, auth.RoleEmployee}})
		Expect(err).NotTo(HaveOccurred())
		Expect(f.description(b)).To(Equal("Alice"))

		_, err = f.memberships.RemoveRole(ctx, f.admin, m.ID, auth.RoleManager)
		Expect(err).NotTo(HaveOccurred())
		Expect(f.description(b)).To(BeEmpty())
	})

	It("skips branches whose role reference row is missing", func() {
		Expect(f.db.Where("id = ?", auth.RoleChildLeadership).Delete(&memberDatamodel.Role{}).Error).To(Succeed())

		_, err := f.memberships.Upsert(ctx, f.admin, b, membership.UpsertMembershipDTO{UserID: f.alice.ID, RoleIDs: []int64{auth.RoleManager}})
		Expect(err).NotTo(HaveOccurred())

		Expect(f.roles(a, f.alice.ID)).To(ConsistOf(auth.RoleEmployee))
		Expect(f.roles(c, f.alice.ID)).To(BeEmpty())

		m, err := f.members.FindByProjectAndUser(ctx, b, f.alice.ID)
		Expect(err).NotTo(HaveOccurred())
		res, err := f.sync.SyncHierarchyForManager(ctx, m)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Skipped).NotTo(BeEmpty())
	})

	It("repairs missed propagation on reconciliation", func() {
		// written directly so no event fires
		_, err := f.members.Grant(ctx, b, f.bob.ID, auth.RoleManager)
		Expect(err).NotTo(HaveOccurred())
		Expect(f.roles(a, f.bob.ID)).To(BeEmpty())

		report, err := f.reconciler.ReconcileAll(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(report.Managers).To(Equal(1))
		Expect(report.Synced).To(Equal(1))
		Expect(report.Writes).To(BeNumerically(">", 0))

		Expect(f.roles(a, f.bob.ID)).To(ConsistOf(auth.RoleEmployee))
		Expect(f.roles(d, f.bob.ID)).To(ConsistOf(auth.RoleChildLeadership))
		Expect(f.description(b)).To(Equal("Bob"))

		report, err = f.reconciler.ReconcileAll(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(report.Writes).To(BeZero())
	})
})

var _ = Describe("Hierarchy synchronization with root parents skipped", func() {
	var (
		f    *fixture
		ctx  context.Context
		a, b int64
	)

	BeforeEach(func() {
		ctx = context.Background()
		f = newFixture(hierarchy.Options{SkipRootParent: true})
		a = f.project("a", nil)
		b = f.project("b", &a)
	})

	AfterEach(func() {
		f.close()
	})

	It("leaves the root project alone", func() {
		_, err := f.memberships.Upsert(ctx, f.admin, b, membership.UpsertMembershipDTO{UserID: f.alice.ID, RoleIDs: []int64{auth.RoleManager}})
		Expect(err).NotTo(HaveOccurred())

		Expect(f.roles(a, f.alice.ID)).To(BeEmpty())
	})
})
