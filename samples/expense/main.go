package main

import (
	"context"
	"log"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"

	"github.com/enactio/enact/backend/memory"
	"github.com/enactio/enact/backend/sqlite"
	"github.com/enactio/enact/candidate"
	"github.com/enactio/enact/core"
	"github.com/enactio/enact/tasks"
)

// approvers maps each user task to the people allowed to claim it.
var approvers = map[string]candidate.Policy{
	"submit":  candidate.StaticPolicy("alice"),
	"approve": candidate.StaticPolicy("boss"),
}

type policyProvider struct{}

func (policyProvider) ActivityConfiguration(ctx context.Context, resolvingUserID, definitionID, activityKey string) (candidate.Policy, error) {
	return approvers[activityKey], nil
}

func main() {
	ctx := context.Background()

	r := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceNameKey.String("enact sample"),
		semconv.ServiceVersionKey.String("v0.1.0"),
		attribute.String("environment", "sample"),
	)

	stdoutexp, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		panic(err)
	}

	tp := trace.NewTracerProvider(
		trace.WithSyncer(stdoutexp),
		trace.WithResource(r),
	)

	otel.SetTracerProvider(tp)

	engine := memory.NewEngine()
	engine.Deploy(expenseDefinition())

	recorder := sqlite.NewInMemoryRecorder()
	defer recorder.Close()

	svc := tasks.New(engine, recorder, policyProvider{}, tasks.WithTracerProvider(tp))

	instance, err := engine.StartInstance(ctx, "expense:1", "EXP-1001", map[string]any{"amount": 320})
	if err != nil {
		panic(err)
	}

	log.Println("Started process instance", instance.ID)

	// alice submits, then the boss approves
	runTask(ctx, svc, instance.ID, "alice", map[string]any{"receipt": "taxi.pdf"})
	runTask(ctx, svc, instance.ID, "boss", map[string]any{"comment": "looks good"})

	historic, err := svc.SelectHistoricProcessInstance(ctx, instance.ID)
	if err != nil {
		panic(err)
	}
	log.Println("Process ended at", historic.EndActivityID)

	entries, err := recorder.ProcessHistory(ctx, instance.ID)
	if err != nil {
		panic(err)
	}
	for _, entry := range entries {
		log.Printf("audit: %s %q by %s on %s", entry.TypeText, entry.TaskName, entry.CreatorID, entry.CreatedAt.Format("15:04:05.000"))
	}

	tp.Shutdown(context.Background())
}

func runTask(ctx context.Context, svc *tasks.Service, instanceID, userID string, variables map[string]any) {
	active, err := svc.SelectNowTask(ctx, instanceID)
	if err != nil {
		panic(err)
	}
	if len(active) == 0 {
		panic("no active task")
	}

	task := active[0]
	if err := svc.SetCandidate(ctx, userID, task); err != nil {
		panic(err)
	}
	if err := svc.Claim(ctx, task.ID, userID); err != nil {
		panic(err)
	}

	log.Printf("%s claimed %q", userID, task.Name)

	if err := svc.Complete(ctx, tasks.CompleteTaskRequest{
		TaskID:         task.ID,
		CompleteUserID: userID,
		Variables:      variables,
	}); err != nil {
		panic(err)
	}

	log.Printf("%s completed %q", userID, task.Name)
}

func expenseDefinition() *core.ProcessDefinition {
	def := core.NewProcessDefinition("expense:1", "expense", "Expense approval", 1)

	def.AddActivity("start", core.ActivityStartEvent, "Start")
	def.AddActivity("submit", core.ActivityUserTask, "Submit expense")
	def.AddActivity("approve", core.ActivityUserTask, "Approve expense")
	def.AddActivity("end", core.ActivityEndEvent, "End")

	for _, edge := range [][2]string{{"start", "submit"}, {"submit", "approve"}, {"approve", "end"}} {
		if err := def.Connect(edge[0], edge[1]); err != nil {
			panic(err)
		}
	}

	return def
}
