package timeentry_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"

	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/frahmantamala/timetrack/internal"
	"github.com/frahmantamala/timetrack/internal/approval"
	"github.com/frahmantamala/timetrack/internal/auth"
	"github.com/frahmantamala/timetrack/internal/closedperiod"
	settingRepo "github.com/frahmantamala/timetrack/internal/closedperiod/postgres"
	memberDatamodel "github.com/frahmantamala/timetrack/internal/core/datamodel/membership"
	settingDatamodel "github.com/frahmantamala/timetrack/internal/core/datamodel/setting"
	entryDatamodel "github.com/frahmantamala/timetrack/internal/core/datamodel/timeentry"
	memberRepo "github.com/frahmantamala/timetrack/internal/membership/postgres"
	"github.com/frahmantamala/timetrack/internal/timeentry"
	entryRepo "github.com/frahmantamala/timetrack/internal/timeentry/postgres"
	"github.com/frahmantamala/timetrack/internal/transport"
	"github.com/frahmantamala/timetrack/internal/visibility"
)

const projectID int64 = 10

var _ = Describe("TimeEntry Handler Integration", func() {
	var (
		db       *gorm.DB
		router   chi.Router
		settings *settingRepo.SettingRepository
		actors   map[string]*auth.Actor
	)

	do := func(login, method, path string, body interface{}) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		if body != nil {
			Expect(json.NewEncoder(&buf).Encode(body)).To(Succeed())
		}
		req := httptest.NewRequest(method, path, &buf)
		req.Header.Set("Content-Type", "application/json")
		req = req.WithContext(auth.ContextWithActor(req.Context(), actors[login]))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	decodeError := func(w *httptest.ResponseRecorder) *internal.AppError {
		var resp struct {
			Error struct {
				Code    internal.ErrorCode     `json:"code"`
				Message string                 `json:"message"`
				Details map[string]interface{} `json:"details"`
			} `json:"error"`
		}
		Expect(json.NewDecoder(w.Body).Decode(&resp)).To(Succeed())
		reason, _ := resp.Error.Details["reason"].(string)
		return &internal.AppError{Code: resp.Error.Code, Message: resp.Error.Message, Details: internal.PolicyDenial{Reason: reason}}
	}

	create := func(login string, payload map[string]interface{}) *timeentry.TimeEntry {
		w := do(login, http.MethodPost, "/time-entries", payload)
		Expect(w.Code).To(Equal(http.StatusCreated), w.Body.String())
		var e timeentry.TimeEntry
		Expect(json.NewDecoder(w.Body).Decode(&e)).To(Succeed())
		return &e
	}

	BeforeEach(func() {
		var err error
		lg := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
		Expect(err).NotTo(HaveOccurred())
		sqlDB, err := db.DB()
		Expect(err).NotTo(HaveOccurred())
		sqlDB.SetMaxOpenConns(1)
		Expect(db.AutoMigrate(
			&memberDatamodel.Role{},
			&memberDatamodel.Member{},
			&memberDatamodel.MemberRole{},
			&entryDatamodel.TimeEntry{},
			&entryDatamodel.CustomValue{},
			&settingDatamodel.Setting{},
		)).To(Succeed())

		actors = map[string]*auth.Actor{
			"employee": {ID: 1, Login: "employee"},
			"manager":  {ID: 2, Login: "manager"},
			"outsider": {ID: 3, Login: "outsider"},
			"admin":    {ID: 4, Login: "admin", Admin: true},
		}

		members := memberRepo.NewMembershipRepository(db)
		Expect(db.Create(&[]memberDatamodel.Role{
			{ID: auth.RoleEmployee, Name: "Employee"},
			{ID: auth.RoleManager, Name: "Manager"},
			{ID: auth.RoleChildLeadership, Name: "ChildLeadership"},
		}).Error).To(Succeed())
		_, err = members.Grant(context.Background(), projectID, 1, auth.RoleEmployee)
		Expect(err).NotTo(HaveOccurred())
		_, err = members.Grant(context.Background(), projectID, 2, auth.RoleManager)
		Expect(err).NotTo(HaveOccurred())

		matrix, err := auth.NewPermissionMatrix(auth.DefaultGrants())
		Expect(err).NotTo(HaveOccurred())
		checker := auth.NewPermissionChecker(members, matrix)

		settings = settingRepo.NewSettingRepository(db)
		guard := approval.NewPolicy(checker, approval.Options{ApprovedFieldID: 2}, lg)
		service := timeentry.NewService(
			entryRepo.NewTimeEntryRepository(db),
			checker,
			guard,
			closedperiod.NewPolicy(settings, lg),
			visibility.NewScope(checker, lg),
			2,
			lg,
		)
		handler := timeentry.NewHandler(&transport.BaseHandler{Logger: lg}, service, guard)

		r := chi.NewRouter()
		r.Post("/time-entries", handler.CreateTimeEntry)
		r.Get("/time-entries", handler.ListTimeEntries)
		r.Get("/time-entries/{id}", handler.GetTimeEntry)
		r.Patch("/time-entries/{id}", handler.UpdateTimeEntry)
		r.Delete("/time-entries/{id}", handler.DestroyTimeEntry)
		r.Get("/projects/{id}/time-entries", handler.ListProjectTimeEntries)
		router = r
	})

	AfterEach(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	It("lets an employee log time and a manager approve it", func() {
		e := create("employee", map[string]interface{}{"project_id": projectID, "hours": 3, "spent_on": "2025-03-10"})
		Expect(e.UserID).To(Equal(int64(1)))
		path := "/time-entries/" + strconv.FormatInt(e.ID, 10)

		w := do("employee", http.MethodPatch, path, map[string]interface{}{"custom_field_values": map[string]string{"2": "1"}})
		Expect(w.Code).To(Equal(http.StatusForbidden))
		Expect(decodeError(w).Reason()).To(Equal("author_cannot_approve_own_entries"))

		w = do("manager", http.MethodPatch, path, map[string]interface{}{"custom_field_values": map[string]string{"2": "1"}, "hours": 1})
		Expect(w.Code).To(Equal(http.StatusForbidden))
		Expect(decodeError(w).Reason()).To(Equal("insufficient_permissions_for_non_author"))

		w = do("manager", http.MethodPatch, path, map[string]interface{}{"custom_field_values": map[string]string{"2": "1"}})
		Expect(w.Code).To(Equal(http.StatusOK), w.Body.String())
		var updated timeentry.TimeEntry
		Expect(json.NewDecoder(w.Body).Decode(&updated)).To(Succeed())
		Expect(updated.CustomValues).To(HaveKeyWithValue(int64(2), "1"))
	})

	It("requires log_time to create entries", func() {
		w := do("outsider", http.MethodPost, "/time-entries", map[string]interface{}{"project_id": projectID, "hours": 3})
		Expect(w.Code).To(Equal(http.StatusForbidden))
		Expect(decodeError(w).Reason()).To(Equal("missing_permission"))
	})

	It("validates payloads", func() {
		w := do("employee", http.MethodPost, "/time-entries", map[string]interface{}{"project_id": projectID, "hours": -1})
		Expect(w.Code).To(Equal(http.StatusBadRequest))
	})

	It("only lets owners delete their entries", func() {
		e := create("employee", map[string]interface{}{"project_id": projectID, "hours": 3, "spent_on": "2025-03-10"})
		path := "/time-entries/" + strconv.FormatInt(e.ID, 10)

		w := do("manager", http.MethodDelete, path, nil)
		Expect(w.Code).To(Equal(http.StatusForbidden))
		Expect(decodeError(w).Reason()).To(Equal("cannot_delete_others_entries"))

		w = do("employee", http.MethodDelete, path, nil)
		Expect(w.Code).To(Equal(http.StatusNoContent))

		w = do("employee", http.MethodGet, path, nil)
		Expect(w.Code).To(Equal(http.StatusNotFound))
	})

	Context("with a closed period through 2025-01-31", func() {
		var inside *timeentry.TimeEntry

		BeforeEach(func() {
			inside = create("employee", map[string]interface{}{"project_id": projectID, "hours": 3, "spent_on": "2025-01-15"})
			Expect(settings.Set(context.Background(), closedperiod.SettingKey, "2025-01-31")).To(Succeed())
		})

		It("rejects new entries on or before the cutoff for everyone", func() {
			for _, login := range []string{"employee", "admin"} {
				w := do(login, http.MethodPost, "/time-entries", map[string]interface{}{"project_id": projectID, "hours": 1, "spent_on": "2025-01-31"})
				Expect(w.Code).To(Equal(http.StatusUnprocessableEntity))
				Expect(decodeError(w).Code).To(Equal(internal.ErrCodeClosedPeriod))
			}

			create("employee", map[string]interface{}{"project_id": projectID, "hours": 1, "spent_on": "2025-02-01"})
		})

		It("keeps closed entries immutable even when moved out of the period", func() {
			path := "/time-entries/" + strconv.FormatInt(inside.ID, 10)
			w := do("employee", http.MethodPatch, path, map[string]interface{}{"spent_on": "2025-03-01"})
			Expect(w.Code).To(Equal(http.StatusUnprocessableEntity))

			w = do("employee", http.MethodDelete, path, nil)
			Expect(w.Code).To(Equal(http.StatusUnprocessableEntity))
		})
	})

	Describe("listing", func() {
		BeforeEach(func() {
			create("employee", map[string]interface{}{"project_id": projectID, "hours": 1, "spent_on": "2025-03-01"})
			create("manager", map[string]interface{}{"project_id": projectID, "hours": 2, "spent_on": "2025-03-02"})
		})

		list := func(login, path string) *timeentry.TimeEntriesResponse {
			w := do(login, http.MethodGet, path, nil)
			Expect(w.Code).To(Equal(http.StatusOK), w.Body.String())
			var resp timeentry.TimeEntriesResponse
			Expect(json.NewDecoder(w.Body).Decode(&resp)).To(Succeed())
			return &resp
		}

		It("shows view-own holders only their entries", func() {
			resp := list("employee", "/projects/10/time-entries")
			Expect(resp.Total).To(Equal(int64(1)))
			Expect(resp.TimeEntries[0].UserID).To(Equal(int64(1)))
		})

		It("shows view-all holders every entry of the project", func() {
			Expect(list("manager", "/projects/10/time-entries").Total).To(Equal(int64(2)))
		})

		It("scopes cross-project listing to own rows for non-admins", func() {
			Expect(list("manager", "/time-entries").Total).To(Equal(int64(1)))
			Expect(list("admin", "/time-entries").Total).To(Equal(int64(2)))
		})

		It("denies the index to actors without a view permission", func() {
			w := do("outsider", http.MethodGet, "/projects/10/time-entries", nil)
			Expect(w.Code).To(Equal(http.StatusForbidden))
		})

		It("hides other users' entries from view-own holders", func() {
			resp := list("manager", "/projects/10/time-entries?approved=false")
			var othersID int64
			for _, e := range resp.TimeEntries {
				if e.UserID == 2 {
					othersID = e.ID
				}
			}
			w := do("employee", http.MethodGet, "/time-entries/"+strconv.FormatInt(othersID, 10), nil)
			Expect(w.Code).To(Equal(http.StatusForbidden))
			Expect(decodeError(w).Reason()).To(Equal("time_entry_not_visible"))
		})
	})
})
