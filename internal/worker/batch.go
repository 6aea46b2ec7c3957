package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ppiankov/askweb/internal/model"
)

// Asker answers one question end to end
type Asker interface {
	Ask(ctx context.Context, question string) (*model.Answer, error)
}

// AskJob is one queued question
type AskJob struct {
	Question string
	Asker    Asker
}

// Execute asks the question
func (j *AskJob) Execute(ctx context.Context) Result {
	answer, err := j.Asker.Ask(ctx, j.Question)
	if err != nil {
		return &AskResult{Question: j.Question, Error: err}
	}
	return &AskResult{Question: j.Question, Answer: answer}
}

// AskResult pairs a question with its answer or error
type AskResult struct {
	Question string
	Answer   *model.Answer
	Error    error
}

// GetError returns the error, nil on success
func (r *AskResult) GetError() error {
	return r.Error
}

// BatchProcessor answers many questions concurrently
type BatchProcessor struct {
	asker       Asker
	concurrency int
}

// NewBatchProcessor creates a batch processor
func NewBatchProcessor(asker Asker, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		asker:       asker,
		concurrency: concurrency,
	}
}

// ProcessQuestions answers every question and returns results in input order
func (b *BatchProcessor) ProcessQuestions(ctx context.Context, questions []string) []*AskResult {
	results := Map(ctx, b.concurrency, len(questions), func(ctx context.Context, i int) *AskResult {
		job := &AskJob{Question: questions[i], Asker: b.asker}
		return job.Execute(ctx).(*AskResult)
	})

	// Questions that never started because ctx ended
	for i, r := range results {
		if r == nil {
			err := ctx.Err()
			if err == nil {
				err = fmt.Errorf("question not processed")
			}
			results[i] = &AskResult{Question: questions[i], Error: err}
		}
	}
	return results
}

// ProcessFile reads questions from a file and answers them
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]*AskResult, error) {
	questions, err := ReadQuestionsFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read questions: %w", err)
	}

	return b.ProcessQuestions(ctx, questions), nil
}

// ReadQuestionsFromFile reads one question per line. Blank lines and lines
// starting with "#" are skipped; repeated questions are kept once.
func ReadQuestionsFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var questions []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !seen[line] {
			seen[line] = true
			questions = append(questions, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return questions, nil
}
