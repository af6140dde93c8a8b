// Sessionguard - Login Risk Analysis and Session Integrity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sessionguard

/*
Package risk scores logins and manages the alerts they raise.

The package has three parts:

  - Evaluator: a pure function of (user, device, new session, prior
    active sessions, now) producing four sub-scores in [0, 100], a
    weighted composite and the findings that crossed a threshold.
  - Generator: persists findings as RiskAlert records, publishes them and
    handles listing and resolution.
  - Aggregator: the account-level score, a severity-weighted sum of the
    unresolved alerts of the trailing seven days.

The composite score describes one login. The aggregate score describes
the account's unresolved history. They are stored in different places
(Session.RiskScore and User.RiskScore) and never mixed.

# Sub-scores

Device risk penalizes devices first seen less than 24 hours ago, low
trust scores and devices the user has not explicitly trusted.

Location risk compares the new session's coordinates with up to five of
the most recent prior sessions that have coordinates. An implied speed
above the impossible-travel threshold adds 80 and stops the comparison;
a speed above the suspicious threshold adds 40 per pair. Seeing more
than three countries in the last seven days adds 30. A login without
coordinates scores a flat 20.

Behavioral risk counts distinct devices used in the last 24 hours and
compares the current UTC hour with the mean login hour.

Session risk penalizes reaching or exceeding the concurrency cap and
sessions active in several countries at once.

# Composite

	composite = 0.30*device + 0.25*location + 0.25*behavioral + 0.20*session

rounded to two decimals.
*/
package risk
