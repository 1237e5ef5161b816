package metrics

import (
	"fmt"
	"log"
	"net/http"

	"github.com/VictoriaMetrics/metrics"
)

// Config controls the standalone metrics listener.
type Config struct {
	Enabled bool
	Port    int
	Path    string
}

var config Config

// Init starts the metrics HTTP listener when enabled.
func Init(cfg Config) {
	config = cfg

	if !config.Enabled {
		log.Printf("[Metrics] Metrics collection is disabled")
		return
	}

	go startMetricsServer()
}

func startMetricsServer() {
	mux := http.NewServeMux()

	mux.HandleFunc(config.Path, func(w http.ResponseWriter, r *http.Request) {
		metrics.WritePrometheus(w, true)
	})

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	addr := fmt.Sprintf("127.0.0.1:%d", config.Port)
	log.Printf("[Metrics] Starting metrics server on %s%s", addr, config.Path)

	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Printf("[Metrics] Error starting metrics server: %v", err)
	}
}

// IsEnabled reports whether metrics collection is on.
func IsEnabled() bool {
	return config.Enabled
}

// RecordCampaignTransition counts campaign party state changes by target
// status.
func RecordCampaignTransition(kind, status string) {
	if !config.Enabled {
		return
	}
	counter := fmt.Sprintf(`campaign_transitions_total{kind=%q,status=%q}`, kind, status)
	metrics.GetOrCreateCounter(counter).Inc()
}

// RecordReward counts CP Coin credits by reason.
func RecordReward(reason string, amount int64) {
	if !config.Enabled {
		return
	}
	counter := fmt.Sprintf(`cpc_rewards_total{reason=%q}`, reason)
	metrics.GetOrCreateCounter(counter).Inc()
	sum := fmt.Sprintf(`cpc_rewards_amount_total{reason=%q}`, reason)
	metrics.GetOrCreateCounter(sum).Add(int(amount))
}

// RecordPenalty counts deadline penalties applied.
func RecordPenalty(amount int64) {
	if !config.Enabled {
		return
	}
	metrics.GetOrCreateCounter("cpc_penalties_total").Inc()
	metrics.GetOrCreateCounter("cpc_penalties_amount_total").Add(int(amount))
}

// RecordQueueMessage counts RabbitMQ publishes and consumes.
func RecordQueueMessage(operation, queue string, success bool) {
	if !config.Enabled {
		return
	}
	counter := fmt.Sprintf(`rabbitmq_messages_total{operation=%q,queue=%q,success="%t"}`, operation, queue, success)
	metrics.GetOrCreateCounter(counter).Inc()
}

// RecordTelegramMessage counts outbound Bot API calls by type and outcome.
func RecordTelegramMessage(messageType, status string) {
	if !config.Enabled {
		return
	}
	counter := fmt.Sprintf(`telegram_messages_total{type=%q,status=%q}`, messageType, status)
	metrics.GetOrCreateCounter(counter).Inc()
}

// RecordSchedulerSweep counts scheduler sweep runs by name.
func RecordSchedulerSweep(sweep string, processed int) {
	if !config.Enabled {
		return
	}
	runs := fmt.Sprintf(`scheduler_sweeps_total{sweep=%q}`, sweep)
	metrics.GetOrCreateCounter(runs).Inc()
	if processed > 0 {
		items := fmt.Sprintf(`scheduler_sweep_items_total{sweep=%q}`, sweep)
		metrics.GetOrCreateCounter(items).Add(processed)
	}
}

// RecordPurchase counts Stars purchases by status.
func RecordPurchase(status string) {
	if !config.Enabled {
		return
	}
	counter := fmt.Sprintf(`stars_purchases_total{status=%q}`, status)
	metrics.GetOrCreateCounter(counter).Inc()
}
