package ingest

import (
	"context"
	"time"

	"placely_ingest_v1_202601/internal/model"
)

// ==================== 轮询 ====================

// PollOutcome 轮询的终局
type PollOutcome string

const (
	// PollNeedsReview 抽取完成，提案等待人工审核
	PollNeedsReview PollOutcome = "needs_review"
	// PollFailed worker 上报失败，Job.Error 里有原因
	PollFailed PollOutcome = "failed"
	// PollApplied 任务在轮询期间被审核应用（窗口开着时别处完成了审核）
	PollApplied PollOutcome = "applied"
	// PollTimedOut 轮询预算耗尽，任务还没到终态；和失败是两回事，任务可能仍在后台推进
	PollTimedOut PollOutcome = "timed_out"
)

// 轮询期间给用户看的进度文案
const (
	MessageQueued     = "Queued…"
	MessageExtracting = "Extracting…"
)

// PollUpdate 每次读到任务状态后的进度回调载荷
type PollUpdate struct {
	Job     *model.IngestJob
	Message string
	Tick    int
}

// PollResult 轮询结果
type PollResult struct {
	Outcome PollOutcome
	Job     *model.IngestJob

	// Proposal 终局为 needs_review 时顺带取回的待审提案
	Proposal *model.IngestProposal
}

// progressMessage 非终态状态对应的文案
func progressMessage(status string) string {
	if status == model.JobStatusQueued {
		return MessageQueued
	}
	return MessageExtracting
}

// PollJob 轮询任务直到终态或预算耗尽
// 每个间隔读一次状态并回调 onUpdate（可为 nil）；读取出错立即中止返回错误，
// 不会静默继续轮；ctx 取消同样立即退出
// 终局为 needs_review 时会取回关联提案放进结果，调用方直接拿去走审核
func (c *Client) PollJob(ctx context.Context, listingID, jobID int64, onUpdate func(PollUpdate)) (*PollResult, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	var job *model.IngestJob
	for tick := 1; tick <= c.pollBudget; tick++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}

		var err error
		job, err = c.GetJob(ctx, listingID, jobID)
		if err != nil {
			return nil, err
		}

		if job.IsTerminal() {
			result := &PollResult{Outcome: terminalOutcome(job.Status), Job: job}
			if result.Outcome == PollNeedsReview && job.ProposalID != nil {
				proposal, err := c.GetProposal(ctx, listingID, *job.ProposalID)
				if err != nil {
					return nil, err
				}
				result.Proposal = proposal
			}
			return result, nil
		}

		if onUpdate != nil {
			onUpdate(PollUpdate{
				Job:     job,
				Message: progressMessage(job.Status),
				Tick:    tick,
			})
		}
	}

	return &PollResult{Outcome: PollTimedOut, Job: job}, nil
}

func terminalOutcome(status string) PollOutcome {
	switch status {
	case model.JobStatusFailed:
		return PollFailed
	case model.JobStatusApplied:
		return PollApplied
	}
	return PollNeedsReview
}
