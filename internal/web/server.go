package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/vadiminshakov/hedger/internal/storage/balances"
	"github.com/vadiminshakov/hedger/internal/storage/trades"
)

const streamPollInterval = 2 * time.Second

type snapshotReader interface {
	SnapshotsAfter(index uint64) ([]balances.SnapshotRecord, error)
}

type tradeReader interface {
	RecordsAfter(index uint64) ([]trades.TradeRecordEntry, error)
}

// Server exposes HTTP endpoints serving the HTML UI and SSE streams for
// ledger snapshots and executed trades.
type Server struct {
	Addr     string
	Balances snapshotReader
	TradeLog tradeReader
}

// NewServer creates a new web server instance.
func NewServer(addr string, snapshots snapshotReader, tradeLog tradeReader) *Server {
	return &Server{Addr: addr, Balances: snapshots, TradeLog: tradeLog}
}

// Start runs the HTTP server (blocking) and shuts it down when ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/balances/stream", s.handleBalanceStream)
	mux.HandleFunc("/trades/stream", s.handleTradeStream)

	server := &http.Server{
		Addr:              s.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, indexHTML)
}

func (s *Server) handleBalanceStream(w http.ResponseWriter, r *http.Request) {
	if s.Balances == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, "snapshot store not available")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// send a comment heartbeat every 30s so proxies keep connection
	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	pollTicker := time.NewTicker(streamPollInterval)
	defer pollTicker.Stop()

	lastIndex := uint64(0)
	sendSnapshots := func() error {
		records, err := s.Balances.SnapshotsAfter(lastIndex)
		if err != nil {
			return err
		}
		for _, record := range records {
			payload, err := json.Marshal(record.Snapshot)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "event: balance\n")
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
			lastIndex = record.Index
		}
		return nil
	}

	if err := sendSnapshots(); err != nil {
		http.Error(w, "failed to load snapshots", http.StatusInternalServerError)
		log.Printf("balance stream initial load: %v", err)
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprintf(w, ": ping\n\n")
			flusher.Flush()
		case <-pollTicker.C:
			if err := sendSnapshots(); err != nil {
				log.Printf("balance stream poll err: %v", err)
			}
		}
	}
}

func (s *Server) handleTradeStream(w http.ResponseWriter, r *http.Request) {
	if s.TradeLog == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, "trade log not available")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	pollTicker := time.NewTicker(streamPollInterval)
	defer pollTicker.Stop()

	lastIndex := uint64(0)
	sendTrades := func() error {
		records, err := s.TradeLog.RecordsAfter(lastIndex)
		if err != nil {
			return err
		}
		for _, record := range records {
			payload, err := json.Marshal(record.Record)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "event: trade\n")
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
			lastIndex = record.Index
		}
		return nil
	}

	if err := sendTrades(); err != nil {
		http.Error(w, "failed to load trades", http.StatusInternalServerError)
		log.Printf("trade stream initial load: %v", err)
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprintf(w, ": ping\n\n")
			flusher.Flush()
		case <-pollTicker.C:
			if err := sendTrades(); err != nil {
				log.Printf("trade stream poll err: %v", err)
			}
		}
	}
}

// Dashboard with per-venue balances and a live trade tape.
const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <title>Hedger</title>
  <link href="https://fonts.googleapis.com/css2?family=Space+Mono:wght@400;700&display=swap" rel="stylesheet">
  <style>
    :root {
      --bg:#ffffff;
      --ink:#111111;
      --ink-mid:#4d4d4d;
      --panel:#f6f6f6;
    }
    * { box-sizing:border-box; }
    body {
      margin:0;
      min-height:100vh;
      display:flex;
      justify-content:center;
      padding:2rem;
      background:var(--bg);
      color:var(--ink);
      font-family:'Space Mono','JetBrains Mono',monospace;
    }
    #app {
      width:min(1100px, 96vw);
      background:var(--panel);
      border:3px solid var(--ink);
      padding:2rem;
      box-shadow:12px 12px 0 rgba(0,0,0,.15);
      display:grid;
      grid-template-columns:1fr 380px;
      gap:2rem;
      align-content:start;
    }
    header { grid-column:1 / -1; display:flex; justify-content:space-between; align-items:center; }
    h1 { font-size:1rem; text-transform:uppercase; letter-spacing:.2em; margin:0; }
    .status {
      font-size:.65rem;
      text-transform:uppercase;
      letter-spacing:.1em;
      border:2px solid var(--ink);
      padding:.4rem .9rem;
      background:#ffffff;
    }
    .venues { display:flex; flex-direction:column; gap:1rem; }
    .venue-card {
      border:3px solid var(--ink);
      padding:1.2rem;
      background:#fff;
      box-shadow:6px 6px 0 rgba(0,0,0,.12);
    }
    .venue-name { font-weight:700; text-transform:uppercase; letter-spacing:.1em; }
    .cash { margin-top:.6rem; font-size:1.4rem; font-weight:700; }
    .holdings { margin-top:.6rem; font-size:.7rem; color:var(--ink-mid); }
    .trades {
      border:3px solid var(--ink);
      padding:1rem;
      background:#fff;
      max-height:70vh;
      overflow-y:auto;
    }
    .trades h2 { font-size:.7rem; text-transform:uppercase; letter-spacing:.15em; margin:0 0 1rem 0; }
    .trade {
      border-bottom:1px dashed var(--ink-mid);
      padding:.5rem 0;
      font-size:.65rem;
      line-height:1.5;
    }
    .trade .buy { color:#1b9aaa; font-weight:700; }
    .trade .sell { color:#d7263d; font-weight:700; }
  </style>
</head>
<body>
  <div id="app">
    <header>
      <h1>hedger dashboard</h1>
      <div id="sse-status" class="status">Connecting…</div>
    </header>
    <section id="venues" class="venues">
      <div class="venue-card">Waiting for ledger snapshots…</div>
    </section>
    <aside class="trades">
      <h2>Trades</h2>
      <div id="trades"></div>
    </aside>
  </div>
<script>
const statusEl = document.getElementById('sse-status');
const venuesEl = document.getElementById('venues');
const tradesEl = document.getElementById('trades');
const MAX_TRADES = 100;

function renderSnapshot(snapshot){
  venuesEl.innerHTML = '';
  const venues = snapshot.venues || {};
  for(const [name, balance] of Object.entries(venues)){
    const card = document.createElement('div');
    card.className = 'venue-card';

    const title = document.createElement('div');
    title.className = 'venue-name';
    title.textContent = name;
    card.appendChild(title);

    const cash = document.createElement('div');
    cash.className = 'cash';
    cash.textContent = parseFloat(balance.cash_usd || 0).toFixed(2) + ' USD';
    card.appendChild(cash);

    const holdings = document.createElement('div');
    holdings.className = 'holdings';
    const parts = [];
    for(const [asset, amount] of Object.entries(balance.holdings || {})){
      const qty = parseFloat(amount);
      if(qty){ parts.push(asset + ': ' + qty.toFixed(4)); }
    }
    holdings.textContent = parts.length ? parts.join('  ') : 'no holdings';
    card.appendChild(holdings);

    venuesEl.appendChild(card);
  }
}

function renderTrade(trade){
  const row = document.createElement('div');
  row.className = 'trade';
  const side = (trade.side || '').toLowerCase();
  const ts = trade.ts ? new Date(trade.ts).toLocaleTimeString([], { hour12:false }) : '';
  row.innerHTML = '<span class="' + side + '">' + side.toUpperCase() + '</span> ' +
    trade.asset + ' @ ' + parseFloat(trade.price).toFixed(4) +
    ' on ' + trade.venue + '<br>' + ts + ' notional ' + parseFloat(trade.notional_usd).toFixed(2);
  tradesEl.insertBefore(row, tradesEl.firstChild);
  while(tradesEl.children.length > MAX_TRADES){
    tradesEl.removeChild(tradesEl.lastChild);
  }
}

function connectBalances(){
  const source = new EventSource('/balances/stream');
  statusEl.textContent = 'Status: receiving data';
  source.addEventListener('balance', (event) => {
    try{ renderSnapshot(JSON.parse(event.data)); }
    catch(err){ console.error('snapshot parse', err); }
  });
  source.addEventListener('error', () => {
    statusEl.textContent = 'Reconnecting…';
    source.close();
    setTimeout(connectBalances, 2000);
  });
}

function connectTrades(){
  const source = new EventSource('/trades/stream');
  source.addEventListener('trade', (event) => {
    try{ renderTrade(JSON.parse(event.data)); }
    catch(err){ console.error('trade parse', err); }
  });
  source.addEventListener('error', () => {
    source.close();
    setTimeout(connectTrades, 2000);
  });
}

connectBalances();
connectTrades();
</script>
</body>
</html>`
