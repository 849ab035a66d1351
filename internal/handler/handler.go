// Package handler exposes the attendance engine over HTTP. Handlers are
// thin: classification happens in the core packages and is mapped to
// status codes here.
package handler

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"manabitrack/internal/attendance"
	"manabitrack/internal/auth"
	"manabitrack/internal/config"
	"manabitrack/internal/dataset"
	"manabitrack/internal/model"
	"manabitrack/internal/report"
	"manabitrack/internal/roster"
	"manabitrack/internal/store"
)

// Handler bundles the services behind the API routes.
type Handler struct {
	cfg    config.App
	store  store.Store
	att    *attendance.Service
	roster *roster.Service
	syncer *dataset.Syncer
}

// New creates a handler over the given services.
func New(cfg config.App, s store.Store, att *attendance.Service, rost *roster.Service, syncer *dataset.Syncer) *Handler {
	return &Handler{cfg: cfg, store: s, att: att, roster: rost, syncer: syncer}
}

// Register mounts all authenticated routes on the /v1 group.
func (h *Handler) Register(r *gin.Engine) {
	r.POST("/v1/login", h.Login)

	v1 := r.Group("/v1", auth.Bearer(h.cfg.JWTSigningKey, h.cfg.JWTIssuer))

	v1.POST("/scans", h.StageScan)
	v1.POST("/scans/:id/confirm", h.ConfirmScan)
	v1.POST("/scans/:id/discard", h.DiscardScan)
	v1.POST("/sweep", h.Sweep)
	v1.GET("/attendance/today", h.Today)
	v1.GET("/attendance/month", h.Month)
	v1.GET("/students/summary", h.StudentSummaries)
	v1.POST("/password", h.SetPassword)

	admin := v1.Group("", auth.RequireAdmin())
	admin.GET("/stats", h.Stats)
	admin.GET("/students", h.ListStudents)
	admin.POST("/students", h.CreateStudent)
	admin.PUT("/students/:id", h.UpdateStudent)
	admin.DELETE("/students/:id", h.DeleteStudent)
	admin.GET("/schools", h.ListSchools)
	admin.POST("/schools", h.CreateSchool)
	admin.PUT("/schools/:id", h.UpdateSchool)
	admin.DELETE("/schools/:id", h.DeleteSchool)
	admin.GET("/admins", h.ListAdmins)
	admin.GET("/reports/roster.csv", h.RosterCSV)
	admin.GET("/reports/school-daily", h.SchoolDaily)
	admin.GET("/reports/school-daily.csv", h.SchoolDailyCSV)
	admin.GET("/reports/student-totals", h.StudentTotals)
	admin.GET("/reports/student-totals.csv", h.StudentTotalsCSV)
	admin.GET("/reports/detail", h.Detail)
	admin.GET("/reports/detail.csv", h.DetailCSV)
	admin.GET("/snapshot", h.ExportSnapshot)
	admin.POST("/snapshot", h.ImportSnapshot)

	super := v1.Group("", auth.RequireSuperAdmin())
	super.POST("/admins", h.CreateAdmin)
	super.PUT("/admins/:id", h.UpdateAdmin)
	super.DELETE("/admins/:id", h.DeleteAdmin)
}

// ---------- Auth ----------

// Login resolves admin users by email, then school consoles by login id.
func (h *Handler) Login(c *gin.Context) {
	var req struct {
		LoginID  string `json:"loginId" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id, err := auth.Resolve(c.Request.Context(), h.store, req.LoginID, req.Password)
	switch {
	case errors.Is(err, auth.ErrPasswordNotSet):
		// First login for an admin with no password yet: the supplied
		// password becomes the account password.
		id, err = auth.CompleteFirstLogin(c.Request.Context(), h.store, req.LoginID, req.Password)
		if errors.Is(err, auth.ErrPasswordNotSet) {
			c.JSON(http.StatusForbidden, gin.H{"error": "password must be at least 8 characters", "code": "password_not_set"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
	case errors.Is(err, auth.ErrBadCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid login id or password"})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	tokens, err := auth.Issue(id.Subject, id.Role, id.SchoolID, h.cfg.JWTIssuer, h.cfg.JWTSigningKey, h.cfg.AccessTTL, h.cfg.RefreshTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"access_token":  tokens.AccessToken,
		"refresh_token": tokens.RefreshToken,
		"expires_at":    tokens.AccessExp.Unix(),
		"role":          id.Role,
		"name":          id.Name,
		"school_id":     id.SchoolID,
	})
}

// SetPassword completes the first-login flow for an admin. The subject is
// taken from the token, never the body.
func (h *Handler) SetPassword(c *gin.Context) {
	var req struct {
		Password string `json:"password" binding:"required,min=8"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	claims := auth.FromContext(c)
	if err := auth.SetPassword(c.Request.Context(), h.store, claims.Subject, req.Password); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ---------- Scans ----------

// StageScan runs the scan pipeline without mutating anything. Rejections
// are outcomes, not transport errors: they come back 200 with a
// classification for the operator display.
func (h *Handler) StageScan(c *gin.Context) {
	var req struct {
		Token string `json:"token" binding:"required"`
		Mode  string `json:"mode" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	schoolID, isSchool := auth.ActingSchool(c)
	if !isSchool && schoolID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "school scope required for scanning"})
		return
	}

	out, err := h.att.Stage(c.Request.Context(), req.Token, schoolID, attendance.Mode(req.Mode))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, out)
}

// ConfirmScan commits a staged transition.
func (h *Handler) ConfirmScan(c *gin.Context) {
	rec, rejection, err := h.att.Confirm(c.Request.Context(), c.Param("id"))
	switch {
	case errors.Is(err, attendance.ErrUnknownPending):
		c.JSON(http.StatusNotFound, gin.H{"error": "no such pending scan"})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	case rejection != nil:
		c.JSON(http.StatusOK, gin.H{"rejection": rejection})
		return
	}
	c.JSON(http.StatusOK, gin.H{"record": rec})
}

// DiscardScan drops a staged transition.
func (h *Handler) DiscardScan(c *gin.Context) {
	if err := h.att.Discard(c.Param("id")); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no such pending scan"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "discarded"})
}

// ---------- Sweep ----------

// Sweep closes today's open sessions. School tokens sweep their own
// school; admin tokens sweep one school (?school=) or all.
func (h *Handler) Sweep(c *gin.Context) {
	var req struct {
		Cutoff string `json:"cutoff"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	cutoff := req.Cutoff
	if cutoff == "" {
		cutoff = h.cfg.SweepCutoff
	}

	scope, _ := auth.ActingSchool(c)
	res, err := h.att.RunSweep(c.Request.Context(), cutoff, scope)
	if err != nil {
		if _, perr := time.Parse(model.ClockLayout, cutoff); perr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid cutoff %q", cutoff)})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, res)
}

// ---------- School console views ----------

func (h *Handler) schoolScope(c *gin.Context) (string, bool) {
	schoolID, _ := auth.ActingSchool(c)
	if schoolID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "school scope required"})
		return "", false
	}
	return schoolID, true
}

// Today lists the school's records for the current day.
func (h *Handler) Today(c *gin.Context) {
	schoolID, ok := h.schoolScope(c)
	if !ok {
		return
	}
	records, err := h.att.TodayRecords(c.Request.Context(), schoolID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": records})
}

// Month lists the school's records for a YYYY-MM month.
func (h *Handler) Month(c *gin.Context) {
	schoolID, ok := h.schoolScope(c)
	if !ok {
		return
	}
	month := c.Query("month")
	if _, err := time.Parse("2006-01", month); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "month must be YYYY-MM"})
		return
	}
	records, err := h.att.MonthRecords(c.Request.Context(), schoolID, month)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": records})
}

// StudentSummaries lists the school's students with total days and
// average completed-session duration.
func (h *Handler) StudentSummaries(c *gin.Context) {
	schoolID, ok := h.schoolScope(c)
	if !ok {
		return
	}
	ds, ok := h.loadDataset(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"students": report.StudentSummaries(ds, schoolID)})
}

// ---------- Reports ----------

func (h *Handler) reportRange(c *gin.Context) (string, string, bool) {
	start, end := c.Query("start"), c.Query("end")
	if err := report.ValidateRange(start, end); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start and end must form an inclusive YYYY-MM-DD range"})
		return "", "", false
	}
	return start, end, true
}

// loadDataset reads all four collections through the attendance service
// so the view cannot straddle a concurrent import or sweep.
func (h *Handler) loadDataset(c *gin.Context) (*model.Dataset, bool) {
	ds, err := h.att.Dataset(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return nil, false
	}
	return ds, true
}

func serveCSV(c *gin.Context, filename string, payload []byte, err error) {
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", payload)
}

// RosterCSV downloads the student roster.
func (h *Handler) RosterCSV(c *gin.Context) {
	ds, ok := h.loadDataset(c)
	if !ok {
		return
	}
	payload, err := report.RosterCSV(ds)
	serveCSV(c, "students.csv", payload, err)
}

// SchoolDaily returns the per-school-per-day aggregation.
func (h *Handler) SchoolDaily(c *gin.Context) {
	start, end, ok := h.reportRange(c)
	if !ok {
		return
	}
	ds, ok := h.loadDataset(c)
	if !ok {
		return
	}
	rows, err := report.SchoolDailyReport(ds, start, end)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"rows": rows})
}

// SchoolDailyCSV downloads the per-school-per-day report.
func (h *Handler) SchoolDailyCSV(c *gin.Context) {
	start, end, ok := h.reportRange(c)
	if !ok {
		return
	}
	ds, ok := h.loadDataset(c)
	if !ok {
		return
	}
	rows, err := report.SchoolDailyReport(ds, start, end)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	payload, err := report.SchoolDailyCSV(rows)
	serveCSV(c, fmt.Sprintf("school-daily_%s_%s.csv", start, end), payload, err)
}

// StudentTotals returns per-student totals over the range.
func (h *Handler) StudentTotals(c *gin.Context) {
	start, end, ok := h.reportRange(c)
	if !ok {
		return
	}
	ds, ok := h.loadDataset(c)
	if !ok {
		return
	}
	rows, err := report.StudentTotals(ds, start, end)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"rows": rows})
}

// StudentTotalsCSV downloads per-student totals.
func (h *Handler) StudentTotalsCSV(c *gin.Context) {
	start, end, ok := h.reportRange(c)
	if !ok {
		return
	}
	ds, ok := h.loadDataset(c)
	if !ok {
		return
	}
	rows, err := report.StudentTotals(ds, start, end)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	payload, err := report.StudentTotalsCSV(rows)
	serveCSV(c, fmt.Sprintf("student-totals_%s_%s.csv", start, end), payload, err)
}

// Detail returns one row per record over the range.
func (h *Handler) Detail(c *gin.Context) {
	start, end, ok := h.reportRange(c)
	if !ok {
		return
	}
	ds, ok := h.loadDataset(c)
	if !ok {
		return
	}
	rows, err := report.Detail(ds, start, end)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"rows": rows})
}

// DetailCSV downloads the per-record detail report.
func (h *Handler) DetailCSV(c *gin.Context) {
	start, end, ok := h.reportRange(c)
	if !ok {
		return
	}
	ds, ok := h.loadDataset(c)
	if !ok {
		return
	}
	rows, err := report.Detail(ds, start, end)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	payload, err := report.DetailCSV(rows)
	serveCSV(c, fmt.Sprintf("detail_%s_%s.csv", start, end), payload, err)
}

// ---------- Snapshot sync ----------

// ExportSnapshot downloads the full dataset as a versioned JSON snapshot.
func (h *Handler) ExportSnapshot(c *gin.Context) {
	snap, err := h.syncer.Export(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	filename := "manabitrack_" + snap.ExportedAt.Format("2006-01-02T15-04-05") + ".json"
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.JSON(http.StatusOK, snap)
}

// ImportSnapshot replaces all four collections with the uploaded snapshot.
// Whole-dataset replace, last import wins; nothing is merged.
func (h *Handler) ImportSnapshot(c *gin.Context) {
	raw, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}
	summary, err := h.syncer.Import(c.Request.Context(), raw)
	if errors.Is(err, dataset.ErrInvalidSnapshot) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, summary)
}

// ---------- Roster CRUD ----------

// Stats returns dashboard overview counts.
func (h *Handler) Stats(c *gin.Context) {
	stats, err := h.roster.Stats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *Handler) ListStudents(c *gin.Context) {
	students, err := h.roster.ListStudents(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"students": students})
}

func (h *Handler) CreateStudent(c *gin.Context) {
	var req struct {
		Name     string `json:"name" binding:"required"`
		SchoolID string `json:"schoolId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	st, err := h.roster.CreateStudent(c.Request.Context(), req.Name, req.SchoolID)
	if err != nil {
		rosterError(c, err)
		return
	}
	c.JSON(http.StatusCreated, st)
}

func (h *Handler) UpdateStudent(c *gin.Context) {
	var req struct {
		Name     string `json:"name" binding:"required"`
		SchoolID string `json:"schoolId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	st, err := h.roster.UpdateStudent(c.Request.Context(), c.Param("id"), req.Name, req.SchoolID)
	if err != nil {
		rosterError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *Handler) DeleteStudent(c *gin.Context) {
	if err := h.roster.DeleteStudent(c.Request.Context(), c.Param("id")); err != nil {
		rosterError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (h *Handler) ListSchools(c *gin.Context) {
	schools, err := h.roster.ListSchools(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	// Credential hashes stay on the server.
	for i := range schools {
		schools[i].PasswordHash = ""
	}
	c.JSON(http.StatusOK, gin.H{"schools": schools})
}

func (h *Handler) CreateSchool(c *gin.Context) {
	var req struct {
		Name     string `json:"name" binding:"required"`
		LoginID  string `json:"loginId" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sch, err := h.roster.CreateSchool(c.Request.Context(), req.Name, req.LoginID, req.Password)
	if err != nil {
		rosterError(c, err)
		return
	}
	sch.PasswordHash = ""
	c.JSON(http.StatusCreated, sch)
}

func (h *Handler) UpdateSchool(c *gin.Context) {
	var req struct {
		Name     string `json:"name" binding:"required"`
		LoginID  string `json:"loginId" binding:"required"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sch, err := h.roster.UpdateSchool(c.Request.Context(), c.Param("id"), req.Name, req.LoginID, req.Password)
	if err != nil {
		rosterError(c, err)
		return
	}
	sch.PasswordHash = ""
	c.JSON(http.StatusOK, sch)
}

func (h *Handler) DeleteSchool(c *gin.Context) {
	if err := h.roster.DeleteSchool(c.Request.Context(), c.Param("id")); err != nil {
		rosterError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (h *Handler) ListAdmins(c *gin.Context) {
	admins, err := h.roster.ListAdmins(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	for i := range admins {
		admins[i].PasswordHash = ""
	}
	c.JSON(http.StatusOK, gin.H{"admins": admins})
}

func (h *Handler) CreateAdmin(c *gin.Context) {
	var req struct {
		Name  string `json:"name" binding:"required"`
		Email string `json:"email" binding:"required,email"`
		Role  string `json:"role" binding:"required,oneof=admin super_admin"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	user, err := h.roster.CreateAdmin(c.Request.Context(), req.Name, req.Email, req.Role)
	if err != nil {
		rosterError(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

func (h *Handler) UpdateAdmin(c *gin.Context) {
	var req struct {
		Name string `json:"name" binding:"required"`
		Role string `json:"role" binding:"required,oneof=admin super_admin"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	user, err := h.roster.UpdateAdmin(c.Request.Context(), c.Param("id"), req.Name, req.Role)
	if err != nil {
		rosterError(c, err)
		return
	}
	user.PasswordHash = ""
	c.JSON(http.StatusOK, user)
}

func (h *Handler) DeleteAdmin(c *gin.Context) {
	claims := auth.FromContext(c)
	if err := h.roster.DeleteAdmin(c.Request.Context(), c.Param("id"), claims.Subject); err != nil {
		rosterError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func rosterError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, roster.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, roster.ErrDuplicateEmail),
		errors.Is(err, roster.ErrWeakPassword),
		errors.Is(err, roster.ErrUnknownSchool):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, roster.ErrProtectedAdmin):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
