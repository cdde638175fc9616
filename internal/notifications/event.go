package notifications

import (
	"fmt"
	"strings"

	"revoice/internal/jobs"
)

// Event identifies a notification type.
type Event string

const (
	EventJobSubmitted Event = "job_submitted"
	EventJobCompleted Event = "job_completed"
	EventJobFailed    Event = "job_failed"
	EventTest         Event = "test"
)

// Payload carries event fields. Known keys: jobId, sourceId, sourceUrl,
// language, stage, error, audioUrl, videoUrl.
type Payload map[string]any

// JobPayload describes job for an event.
func JobPayload(job *jobs.Job) Payload {
	if job == nil {
		return Payload{}
	}
	p := Payload{
		"jobId":     job.ID,
		"sourceId":  job.SourceID,
		"sourceUrl": job.SourceURL,
		"language":  job.TargetLanguage,
		"status":    string(job.Status),
	}
	if job.Stage != "" {
		p["stage"] = job.Stage
	}
	if job.Error != "" {
		p["error"] = job.Error
	}
	if job.Result != nil {
		p["audioUrl"] = job.Result.AudioURL
		if job.Result.VideoURL != "" {
			p["videoUrl"] = job.Result.VideoURL
		}
	}
	return p
}

func (p Payload) str(key string) string {
	if p == nil {
		return ""
	}
	switch v := p[key].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case error:
		return strings.TrimSpace(v.Error())
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

// message is the human-readable rendering used by text transports.
type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

func render(event Event, p Payload) (message, bool) {
	subject := p.str("sourceId")
	if subject == "" {
		subject = p.str("sourceUrl")
	}
	lang := p.str("language")
	switch event {
	case EventJobSubmitted:
		return message{
			title: "revoice - Job Submitted",
			body:  fmt.Sprintf("🎙️ Queued %s for %s", subject, lang),
			tags:  []string{"revoice", "job", "submitted"},
		}, true
	case EventJobCompleted:
		body := fmt.Sprintf("✅ %s revoiced in %s", subject, lang)
		if url := p.str("audioUrl"); url != "" {
			body += "\n" + url
		}
		return message{
			title:    "revoice - Complete",
			body:     body,
			tags:     []string{"revoice", "job", "completed"},
			priority: "high",
		}, true
	case EventJobFailed:
		body := fmt.Sprintf("❌ %s (%s) failed", subject, lang)
		if stage := p.str("stage"); stage != "" {
			body += " during " + stage
		}
		if reason := p.str("error"); reason != "" {
			body += ": " + reason
		}
		return message{
			title:    "revoice - Job Failed",
			body:     body,
			tags:     []string{"revoice", "error", "alert"},
			priority: "high",
		}, true
	case EventTest:
		return message{
			title:    "revoice - Test",
			body:     "🧪 Notification system test",
			tags:     []string{"revoice", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
}
