package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "plena"

// ConversationMetrics exposes counters/histograms for the quote conversation.
type ConversationMetrics struct {
	turnsTotal  *prometheus.CounterVec
	faqTotal    *prometheus.CounterVec
	quotesTotal *prometheus.CounterVec
	quoteValue  prometheus.Histogram
	leadsTotal  prometheus.Counter
}

func NewConversationMetrics(reg prometheus.Registerer) *ConversationMetrics {
	m := &ConversationMetrics{
		turnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "conversation",
			Name:      "turns_total",
			Help:      "Total processed conversation turns by resulting state",
		}, []string{"state"}),
		faqTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "conversation",
			Name:      "faq_total",
			Help:      "Total FAQ intercepts by category",
		}, []string{"category"}),
		quotesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pricing",
			Name:      "quotes_total",
			Help:      "Total quotes presented",
		}, []string{"plan_type", "tier"}),
		quoteValue: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pricing",
			Name:      "quote_value",
			Help:      "Monthly value of presented quotes",
			Buckets:   prometheus.ExponentialBuckets(100, 2, 10),
		}),
		leadsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "leads_total",
			Help:      "Total qualified leads handed to a broker",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.turnsTotal, m.faqTotal, m.quotesTotal, m.quoteValue, m.leadsTotal)
	return m
}

func (m *ConversationMetrics) ObserveTurn(state string) {
	if m == nil {
		return
	}
	m.turnsTotal.WithLabelValues(state).Inc()
}

func (m *ConversationMetrics) ObserveFAQ(category string) {
	if m == nil {
		return
	}
	m.faqTotal.WithLabelValues(category).Inc()
}

func (m *ConversationMetrics) ObserveQuote(planType, tier string, value float64) {
	if m == nil {
		return
	}
	m.quotesTotal.WithLabelValues(planType, tier).Inc()
	m.quoteValue.Observe(value)
}

func (m *ConversationMetrics) ObserveLead() {
	if m == nil {
		return
	}
	m.leadsTotal.Inc()
}

// RemarketingMetrics tracks re-engagement sends and evictions.
type RemarketingMetrics struct {
	sentTotal    *prometheus.CounterVec
	evictedTotal prometheus.Counter
}

func NewRemarketingMetrics(reg prometheus.Registerer) *RemarketingMetrics {
	m := &RemarketingMetrics{
		sentTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "remarketing",
			Name:      "sent_total",
			Help:      "Total remarketing messages produced",
		}, []string{"stage", "attempt"}),
		evictedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "remarketing",
			Name:      "evicted_total",
			Help:      "Total sessions evicted after exhausting remarketing attempts",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.sentTotal, m.evictedTotal)
	return m
}

func (m *RemarketingMetrics) ObserveSent(stage string, attempt int) {
	if m == nil {
		return
	}
	m.sentTotal.WithLabelValues(stage, strconv.Itoa(attempt)).Inc()
}

func (m *RemarketingMetrics) ObserveEvicted() {
	if m == nil {
		return
	}
	m.evictedTotal.Inc()
}

// MessagingMetrics exposes counters/histograms for SMS flows.
type MessagingMetrics struct {
	inboundTotal   *prometheus.CounterVec
	outboundTotal  *prometheus.CounterVec
	webhookLatency prometheus.Histogram
}

func NewMessagingMetrics(reg prometheus.Registerer) *MessagingMetrics {
	m := &MessagingMetrics{
		inboundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "messaging",
			Name:      "inbound_webhook_total",
			Help:      "Total inbound Twilio webhooks",
		}, []string{"status"}),
		outboundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "messaging",
			Name:      "outbound_total",
			Help:      "Total outbound Twilio sends",
		}, []string{"status"}),
		webhookLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "messaging",
			Name:      "webhook_latency_seconds",
			Help:      "Latency of Twilio webhook processing",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.inboundTotal, m.outboundTotal, m.webhookLatency)
	return m
}

func (m *MessagingMetrics) ObserveInbound(status string) {
	if m == nil {
		return
	}
	m.inboundTotal.WithLabelValues(status).Inc()
}

func (m *MessagingMetrics) ObserveOutbound(status string) {
	if m == nil {
		return
	}
	m.outboundTotal.WithLabelValues(status).Inc()
}

func (m *MessagingMetrics) ObserveWebhookLatency(seconds float64) {
	if m == nil {
		return
	}
	m.webhookLatency.Observe(seconds)
}
