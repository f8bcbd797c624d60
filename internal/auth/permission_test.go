package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"

	"github.com/go-chi/chi"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
)

type stubRoleLookup struct {
	roles map[[2]int64][]int64
	err   error
}

func (s *stubRoleLookup) RoleIDsFor(ctx context.Context, projectID, userID int64) ([]int64, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.roles[[2]int64{projectID, userID}], nil
}

var _ = ginkgo.Describe("PermissionMatrix", func() {
	ginkgo.It("grants the default permissions per role", func() {
		m, err := NewPermissionMatrix(DefaultGrants())
		gomega.Expect(err).ToNot(gomega.HaveOccurred())

		cases := []struct {
			role    int64
			perm    Permission
			allowed bool
		}{
			{RoleEmployee, PermLogTime, true},
			{RoleEmployee, PermViewOwnTimeEntries, true},
			{RoleEmployee, PermViewTimeEntries, false},
			{RoleEmployee, PermApproveTimeEntries, false},
			{RoleManager, PermApproveTimeEntries, true},
			{RoleManager, PermViewTimeEntries, true},
			{RoleChildLeadership, PermApproveTimeEntries, true},
			{RoleChildLeadership, PermLogTime, false},
			{99, PermLogTime, false},
		}
		for _, c := range cases {
			ok, err := m.RoleAllows(c.role, c.perm)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(ok).To(gomega.Equal(c.allowed), "role %d permission %s", c.role, c.perm)
		}
	})

	ginkgo.It("applies configured overrides", func() {
		grants, err := GrantsFromConfig(map[string][]string{"employee": {"log_time", "view_time_entries"}})
		gomega.Expect(err).ToNot(gomega.HaveOccurred())

		m, err := NewPermissionMatrix(grants)
		gomega.Expect(err).ToNot(gomega.HaveOccurred())

		ok, _ := m.RoleAllows(RoleEmployee, PermViewTimeEntries)
		gomega.Expect(ok).To(gomega.BeTrue())
		ok, _ = m.RoleAllows(RoleEmployee, PermViewOwnTimeEntries)
		gomega.Expect(ok).To(gomega.BeFalse())
		gomega.Expect(m.Permissions(RoleEmployee)).To(gomega.Equal([]Permission{PermLogTime, PermViewTimeEntries}))
	})

	ginkgo.It("rejects unknown roles and permissions in overrides", func() {
		_, err := GrantsFromConfig(map[string][]string{"intern": {"log_time"}})
		gomega.Expect(err).To(gomega.HaveOccurred())

		_, err = GrantsFromConfig(map[string][]string{"manager": {"fly"}})
		gomega.Expect(err).To(gomega.HaveOccurred())
	})
})

var _ = ginkgo.Describe("RolePermissionChecker", func() {
	var (
		ctx     context.Context
		lookup  *stubRoleLookup
		checker *RolePermissionChecker
	)

	ginkgo.BeforeEach(func() {
		ctx = context.Background()
		lookup = &stubRoleLookup{roles: map[[2]int64][]int64{
			{10, 1}: {RoleEmployee},
			{10, 2}: {RoleEmployee, RoleManager},
		}}
		m, err := NewPermissionMatrix(DefaultGrants())
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		checker = NewPermissionChecker(lookup, m)
	})

	ginkgo.It("allows administrators everything", func() {
		ok, err := checker.Allowed(ctx, &Actor{ID: 7, Admin: true}, PermApproveTimeEntries, 42)
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		gomega.Expect(ok).To(gomega.BeTrue())
	})

	ginkgo.It("resolves permissions through the project roles", func() {
		ok, _ := checker.Allowed(ctx, &Actor{ID: 1}, PermApproveTimeEntries, 10)
		gomega.Expect(ok).To(gomega.BeFalse())

		ok, _ = checker.Allowed(ctx, &Actor{ID: 2}, PermApproveTimeEntries, 10)
		gomega.Expect(ok).To(gomega.BeTrue())
	})

	ginkgo.It("denies actors without membership", func() {
		ok, err := checker.Allowed(ctx, &Actor{ID: 3}, PermLogTime, 10)
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		gomega.Expect(ok).To(gomega.BeFalse())
	})

	ginkgo.It("denies a nil actor and a missing project", func() {
		ok, _ := checker.Allowed(ctx, nil, PermLogTime, 10)
		gomega.Expect(ok).To(gomega.BeFalse())
		ok, _ = checker.Allowed(ctx, &Actor{ID: 1}, PermLogTime, 0)
		gomega.Expect(ok).To(gomega.BeFalse())
	})

	ginkgo.It("propagates lookup errors", func() {
		lookup.err = errors.New("db down")
		_, err := checker.Allowed(ctx, &Actor{ID: 1}, PermLogTime, 10)
		gomega.Expect(err).To(gomega.MatchError(gomega.ContainSubstring("db down")))
	})

	ginkgo.It("reports whether any permission is held", func() {
		ok, err := AnyAllowed(ctx, checker, &Actor{ID: 1}, 10, PermViewTimeEntries, PermViewOwnTimeEntries)
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		gomega.Expect(ok).To(gomega.BeTrue())
	})
})

var _ = ginkgo.Describe("RBACAuthorization", func() {
	var router chi.Router

	ginkgo.BeforeEach(func() {
		lookup := &stubRoleLookup{roles: map[[2]int64][]int64{
			{10, 1}: {RoleEmployee},
			{10, 2}: {RoleManager},
		}}
		m, err := NewPermissionMatrix(DefaultGrants())
		gomega.Expect(err).ToNot(gomega.HaveOccurred())

		rbac := NewRBACAuthorization(NewPermissionChecker(lookup, m),
			slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError})))
		ok := func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) }

		router = chi.NewRouter()
		router.With(rbac.RequireAdmin()).Get("/admin", ok)
		router.With(rbac.RequireProjectPermission("id", PermViewTimeEntries, PermApproveTimeEntries)).
			Get("/projects/{id}/members", ok)
	})

	call := func(path string, actor *Actor) int {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if actor != nil {
			req = req.WithContext(ContextWithActor(req.Context(), actor))
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w.Code
	}

	ginkgo.It("lets only administrators through the admin gate", func() {
		gomega.Expect(call("/admin", nil)).To(gomega.Equal(http.StatusUnauthorized))
		gomega.Expect(call("/admin", &Actor{ID: 2})).To(gomega.Equal(http.StatusForbidden))
		gomega.Expect(call("/admin", &Actor{ID: 9, Admin: true})).To(gomega.Equal(http.StatusNoContent))
	})

	ginkgo.It("requires one of the project permissions", func() {
		gomega.Expect(call("/projects/10/members", &Actor{ID: 1})).To(gomega.Equal(http.StatusForbidden))
		gomega.Expect(call("/projects/10/members", &Actor{ID: 2})).To(gomega.Equal(http.StatusNoContent))
		gomega.Expect(call("/projects/abc/members", &Actor{ID: 2})).To(gomega.Equal(http.StatusBadRequest))
	})
})
