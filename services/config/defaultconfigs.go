package config

// defaultConfig is the built-in configuration. Every key a deployment may
// override must appear here so environment overrides can find it.
const defaultConfig = `
device:
  bus: /dev/i2c-1
  address: 0x28
  firmware: ""
  pollInterval: 500us
  ackTimeout: 100ms
  maxPolls: 0
  sensors: []

telemetry:
  interval: 20ms
  bufferSize: 256
  drainRate: 100
  burst: 4
  topicPrefix: hub

logging:
  level: info
  format: json
  file:
    filename: ""
    maxSize: 20
    maxBackups: 3
    maxAge: 7
    compress: true

metrics:
  enable: true
  addr: ":9102"
  path: /metrics

heartbeat:
  interval: 2s
`
