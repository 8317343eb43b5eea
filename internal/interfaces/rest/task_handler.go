package rest

import (
	"github.com/gin-gonic/gin"

	"github.com/orbitapp/backend/internal/application/services"
)

type TaskHandler struct {
	tasks *services.TaskService
}

func NewTaskHandler(tasks *services.TaskService) *TaskHandler {
	return &TaskHandler{tasks: tasks}
}

func (h *TaskHandler) Create(c *gin.Context) {
	session, err := GetUserFromContext(c)
	if err != nil {
		RespondError(c, err)
		return
	}
	var req services.CreateTaskRequest
	if !BindJSON(c, &req) {
		return
	}
	task, err := h.tasks.Create(c.Request.Context(), session, req)
	HandleCreate(c, task, err)
}

func (h *TaskHandler) Get(c *gin.Context) {
	session, err := GetUserFromContext(c)
	if err != nil {
		RespondError(c, err)
		return
	}
	task, err := h.tasks.Get(c.Request.Context(), session, c.Param("id"))
	HandleGet(c, task, err)
}

func (h *TaskHandler) Update(c *gin.Context) {
	session, err := GetUserFromContext(c)
	if err != nil {
		RespondError(c, err)
		return
	}
	var req services.UpdateTaskRequest
	if !BindJSON(c, &req) {
		return
	}
	task, err := h.tasks.Update(c.Request.Context(), session, c.Param("id"), req)
	HandleUpdate(c, task, err)
}

// ListByProject expects ?project=<id>.
func (h *TaskHandler) ListByProject(c *gin.Context) {
	session, err := GetUserFromContext(c)
	if err != nil {
		RespondError(c, err)
		return
	}
	tasks, err := h.tasks.ListByProject(c.Request.Context(), session, c.Query("project"))
	HandleGet(c, tasks, err)
}

func (h *TaskHandler) ListMine(c *gin.Context) {
	session, err := GetUserFromContext(c)
	if err != nil {
		RespondError(c, err)
		return
	}
	tasks, err := h.tasks.ListMine(c.Request.Context(), session)
	HandleGet(c, tasks, err)
}

type assignRequest struct {
	AssigneeID string `json:"assignee_id" binding:"required"`
}

func (h *TaskHandler) Assign(c *gin.Context) {
	session, err := GetUserFromContext(c)
	if err != nil {
		RespondError(c, err)
		return
	}
	var req assignRequest
	if !BindJSON(c, &req) {
		return
	}
	task, err := h.tasks.Assign(c.Request.Context(), session, c.Param("id"), req.AssigneeID)
	HandleUpdate(c, task, err)
}

func (h *TaskHandler) Start(c *gin.Context) {
	session, err := GetUserFromContext(c)
	if err != nil {
		RespondError(c, err)
		return
	}
	task, err := h.tasks.Start(c.Request.Context(), session, c.Param("id"))
	HandleUpdate(c, task, err)
}

func (h *TaskHandler) Submit(c *gin.Context) {
	session, err := GetUserFromContext(c)
	if err != nil {
		RespondError(c, err)
		return
	}
	task, err := h.tasks.Submit(c.Request.Context(), session, c.Param("id"))
	HandleUpdate(c, task, err)
}

func (h *TaskHandler) GrantAccess(c *gin.Context) {
	session, err := GetUserFromContext(c)
	if err != nil {
		RespondError(c, err)
		return
	}
	var req accessRequest
	if !BindJSON(c, &req) {
		return
	}
	err = h.tasks.GrantAccess(c.Request.Context(), session, c.Param("id"), req.UserID, req.Level)
	HandleDelete(c, err)
}

func (h *TaskHandler) RevokeAccess(c *gin.Context) {
	session, err := GetUserFromContext(c)
	if err != nil {
		RespondError(c, err)
		return
	}
	err = h.tasks.RevokeAccess(c.Request.Context(), session, c.Param("id"), c.Param("userId"))
	HandleDelete(c, err)
}
